package ml

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/vertexai/genai"
)

type scriptedSession struct {
	replies  [][]genai.Part
	received [][]genai.Part
	err      error
}

func (s *scriptedSession) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	s.received = append(s.received, parts)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.replies) == 0 {
		return &genai.GenerateContentResponse{}, nil
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: next}}},
	}, nil
}

func echoTool(calls *[]string) Tool {
	return Tool{
		Name:       "lookup",
		ParamName:  "query",
		ResultName: "searchResult",
		Invoke: func(ctx context.Context, q string) (string, error) {
			*calls = append(*calls, q)
			return "info about " + q, nil
		},
	}
}

func TestRunChatAnswersFunctionCalls(t *testing.T) {
	var calls []string
	session := &scriptedSession{replies: [][]genai.Part{
		{
			genai.FunctionCall{Name: "lookup", Args: map[string]any{"query": "idli"}},
			genai.FunctionCall{Name: "lookup", Args: map[string]any{"query": "sambar"}},
		},
		{genai.Text(`{"calories": 300}`)},
	}}
	req := Request{Prompt: "estimate", Tools: []Tool{echoTool(&calls)}}

	out, err := runChat(context.Background(), session, req)
	if err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if out != `{"calories": 300}` {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Join(calls, ",") != "idli,sambar" {
		t.Fatalf("tool calls = %v", calls)
	}
	if len(session.received) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(session.received))
	}
	second := session.received[1]
	if len(second) != 2 {
		t.Fatalf("expected 2 function responses, got %d", len(second))
	}
	fr, ok := second[0].(genai.FunctionResponse)
	if !ok || fr.Name != "lookup" || fr.Response["searchResult"] != "info about idli" {
		t.Fatalf("unexpected function response %#v", second[0])
	}
}

func TestRunChatToolLimit(t *testing.T) {
	var calls []string
	loop := []genai.Part{genai.FunctionCall{Name: "lookup", Args: map[string]any{"query": "x"}}}
	session := &scriptedSession{replies: [][]genai.Part{loop, loop, loop}}
	req := Request{Prompt: "p", Tools: []Tool{echoTool(&calls)}, MaxToolRounds: 2}

	_, err := runChat(context.Background(), session, req)
	if !errors.Is(err, ErrTooManyToolRounds) {
		t.Fatalf("expected ErrTooManyToolRounds, got %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 tool invocations before giving up, got %d", len(calls))
	}
}

func TestRunChatUnknownToolIsReported(t *testing.T) {
	session := &scriptedSession{replies: [][]genai.Part{
		{genai.FunctionCall{Name: "nope", Args: map[string]any{}}},
		{genai.Text("done")},
	}}
	out, err := runChat(context.Background(), session, Request{Prompt: "p"})
	if err != nil || out != "done" {
		t.Fatalf("runChat = %q, %v", out, err)
	}
	fr := session.received[1][0].(genai.FunctionResponse)
	if !strings.Contains(fr.Response["result"].(string), "unknown tool") {
		t.Fatalf("unexpected response %#v", fr.Response)
	}
}

func TestRunChatErrors(t *testing.T) {
	if _, err := runChat(context.Background(), &scriptedSession{err: errors.New("quota")}, Request{}); err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
	if _, err := runChat(context.Background(), &scriptedSession{}, Request{}); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestGoogleModelNotLoaded(t *testing.T) {
	m := &GoogleModel{}
	if _, err := m.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error from unloaded model")
	}
}
