package tools

import (
	"encoding/json"
	"testing"

	"github.com/victry/ai-gateway/internal/anthropic"
)

func TestExtractCalls_NilContent(t *testing.T) {
	if calls := ExtractCalls(nil); calls != nil {
		t.Errorf("Expected nil for nil content, got %v", calls)
	}
}

func TestExtractCalls_StringContent(t *testing.T) {
	if calls := ExtractCalls("just a plain response"); calls != nil {
		t.Errorf("Expected nil for string content, got %v", calls)
	}
}

func TestExtractCalls_NoToolUse(t *testing.T) {
	content := []anthropic.ContentBlock{
		{Type: "text", Text: "Thinking about it"},
		{Type: "text", Text: "Here is my answer"},
	}

	if calls := ExtractCalls(content); calls != nil {
		t.Errorf("Expected nil when no tool_use blocks present, got %v", calls)
	}
}

func TestExtractCalls_SingleToolUse(t *testing.T) {
	content := []anthropic.ContentBlock{
		{Type: "text", Text: "Let me check"},
		{Type: "tool_use", ID: "toolu_01", Name: "extract_keywords", Input: map[string]any{"text": "Go developer"}},
	}

	calls := ExtractCalls(content)
	if len(calls) != 1 {
		t.Fatalf("Expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "extract_keywords" {
		t.Errorf("Expected name 'extract_keywords', got '%s'", calls[0].Name)
	}
	if calls[0].Arguments["text"] != "Go developer" {
		t.Errorf("Expected arguments to pass through, got %v", calls[0].Arguments)
	}
}

func TestExtractCalls_NameFallsBackToID(t *testing.T) {
	content := []anthropic.ContentBlock{
		{Type: "tool_use", ID: "toolu_01XYZ", Input: map[string]any{"a": float64(1)}},
	}

	calls := ExtractCalls(content)
	if len(calls) != 1 {
		t.Fatalf("Expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "toolu_01XYZ" {
		t.Errorf("Expected name to fall back to id 'toolu_01XYZ', got '%s'", calls[0].Name)
	}
}

func TestExtractCalls_MissingInput(t *testing.T) {
	content := []anthropic.ContentBlock{
		{Type: "tool_use", Name: "current_date"},
	}

	calls := ExtractCalls(content)
	if len(calls) != 1 {
		t.Fatalf("Expected 1 call, got %d", len(calls))
	}
	if calls[0].Arguments == nil {
		t.Error("Expected empty arguments map, got nil")
	}
	if len(calls[0].Arguments) != 0 {
		t.Errorf("Expected empty arguments, got %v", calls[0].Arguments)
	}
}

func TestExtractCalls_PreservesOrder(t *testing.T) {
	content := []anthropic.ContentBlock{
		{Type: "tool_use", Name: "first", Input: map[string]any{}},
		{Type: "text", Text: "and also"},
		{Type: "tool_use", Name: "second", Input: map[string]any{}},
		{Type: "tool_use", Name: "third", Input: map[string]any{}},
	}

	calls := ExtractCalls(content)
	if len(calls) != 3 {
		t.Fatalf("Expected 3 calls, got %d", len(calls))
	}
	for i, want := range []string{"first", "second", "third"} {
		if calls[i].Name != want {
			t.Errorf("Expected call %d to be '%s', got '%s'", i, want, calls[i].Name)
		}
	}
}

func TestExtractCalls_DecodedJSON(t *testing.T) {
	raw := `[
		{"type": "text", "text": "On it"},
		{"type": "tool_use", "id": "toolu_02", "name": "match_score", "input": {"resume_text": "Go", "job_text": "Go"}}
	]`
	var content any
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	calls := ExtractCalls(content)
	if len(calls) != 1 {
		t.Fatalf("Expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "match_score" {
		t.Errorf("Expected name 'match_score', got '%s'", calls[0].Name)
	}
	if calls[0].Arguments["resume_text"] != "Go" {
		t.Errorf("Expected arguments from input, got %v", calls[0].Arguments)
	}
}
