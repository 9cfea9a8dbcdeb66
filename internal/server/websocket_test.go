package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/franckalain/nutrisnap/internal/models"
)

type wsReply struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "data": data}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil returns the first message of type want, skipping broadcasts
func readUntil(t *testing.T, conn *websocket.Conn, want string) wsReply {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var r wsReply
		if err := conn.ReadJSON(&r); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if r.Type == want {
			return r
		}
	}
}

func TestWebSocketLogMeal(t *testing.T) {
	s, ts := newTestServer(t, &fakeEstimator{}, nil)
	conn := dial(t, ts.URL)

	sendWS(t, conn, "log_meal", map[string]string{"description": "paneer tikka"})
	added := readUntil(t, conn, "meal_added")

	var meal models.Meal
	if err := json.Unmarshal(added.Data, &meal); err != nil {
		t.Fatal(err)
	}
	if meal.Description != "paneer tikka" || meal.Calories != 350 {
		t.Fatalf("unexpected meal %+v", meal)
	}

	hist := readUntil(t, conn, "history")
	var h History
	json.Unmarshal(hist.Data, &h)
	if len(h.Items) != 1 || h.DayTotal.Count != 1 {
		t.Fatalf("unexpected broadcast history %+v", h)
	}

	sendWS(t, conn, "delete_meal", map[string]string{"id": meal.ID})
	readUntil(t, conn, "meal_deleted")
	if len(s.store.List()) != 0 {
		t.Fatal("meal not deleted")
	}
}

func TestWebSocketEstimateThenConfirm(t *testing.T) {
	s, ts := newTestServer(t, &fakeEstimator{}, nil)
	conn := dial(t, ts.URL)

	sendWS(t, conn, "estimate", map[string]string{"description": "vada pav"})
	res := readUntil(t, conn, "estimate_result")
	var est estimateResult
	if err := json.Unmarshal(res.Data, &est); err != nil {
		t.Fatal(err)
	}
	if est.ID == "" || est.Fat != 11 {
		t.Fatalf("unexpected estimate %+v", est)
	}
	if len(s.store.List()) != 0 {
		t.Fatal("estimate alone must not record a meal")
	}

	sendWS(t, conn, "confirm_meal", map[string]string{"id": est.ID})
	readUntil(t, conn, "meal_added")
	if list := s.store.List(); len(list) != 1 || list[0].Description != "vada pav" {
		t.Fatalf("unexpected store contents %+v", list)
	}

	// a pending estimate can only be confirmed once
	sendWS(t, conn, "confirm_meal", map[string]string{"id": est.ID})
	if r := readUntil(t, conn, "error"); r.Message != "Estimate not found" {
		t.Fatalf("unexpected error %q", r.Message)
	}
}

func TestWebSocketErrors(t *testing.T) {
	est := &fakeEstimator{}
	_, ts := newTestServer(t, est, nil)
	conn := dial(t, ts.URL)

	sendWS(t, conn, "log_meal", map[string]string{"description": "  "})
	if r := readUntil(t, conn, "error"); r.Message != "Meal description cannot be empty." {
		t.Fatalf("unexpected error %q", r.Message)
	}

	sendWS(t, conn, "dance", nil)
	if r := readUntil(t, conn, "error"); r.Message != "Unknown message type" {
		t.Fatalf("unexpected error %q", r.Message)
	}
	if est.count() != 0 {
		t.Fatal("estimator should not be called")
	}
}

func TestRESTChangesReachWebSocketClients(t *testing.T) {
	_, ts := newTestServer(t, &fakeEstimator{}, nil)
	conn := dial(t, ts.URL)

	// the connection is registered once it answers
	sendWS(t, conn, "get_history", nil)
	readUntil(t, conn, "history")

	resp := postJSON(t, ts.URL+"/api/meals", MealRequest{Description: "idli sambar"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var h History
	json.Unmarshal(readUntil(t, conn, "history").Data, &h)
	if len(h.Items) != 1 || h.Items[0].Description != "idli sambar" || h.DayTotal.Calories != 350 {
		t.Fatalf("unexpected pushed history %+v", h)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/meals/today", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	h = History{}
	json.Unmarshal(readUntil(t, conn, "history").Data, &h)
	if len(h.Items) != 0 || h.DayTotal.Count != 0 {
		t.Fatalf("expected empty history after clearing today, got %+v", h)
	}
}
