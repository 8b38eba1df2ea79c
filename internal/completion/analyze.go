package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/victry/ai-gateway/internal/anthropic"
)

// AnalyzeRequest asks for a structured breakdown of one job posting.
type AnalyzeRequest struct {
	JobDescription string `json:"jobDescription"`
	Model          string `json:"model,omitempty"`
}

// Analysis is the structured result of a job description analysis.
type Analysis struct {
	Title            string   `json:"title" jsonschema:"description=Job title as written in the posting"`
	Company          string   `json:"company,omitempty" jsonschema:"description=Hiring company if stated"`
	Seniority        string   `json:"seniority,omitempty" jsonschema:"description=Seniority level such as junior, mid, senior or staff"`
	HardSkills       []string `json:"hardSkills" jsonschema:"description=Technical skills and technologies required"`
	SoftSkills       []string `json:"softSkills,omitempty" jsonschema:"description=Soft skills mentioned in the posting"`
	Responsibilities []string `json:"responsibilities,omitempty" jsonschema:"description=Main responsibilities of the role"`
	Qualifications   []string `json:"qualifications,omitempty" jsonschema:"description=Required qualifications and experience"`
	Keywords         []string `json:"keywords" jsonschema:"description=Keywords a tailored resume should cover"`
}

const analysisToolName = "record_job_analysis"

const analysisSystem = "You are a job posting analyst for a resume builder. " +
	"Extract the requested fields from the job description exactly as posted. " +
	"Report your analysis with the record_job_analysis tool."

// Analyze sends a job description through the model with a forced analysis
// tool and decodes the structured result. A model that answers in prose
// instead of calling the tool is given a second chance: the first JSON
// object embedded in the text is accepted. If neither yields an analysis
// the request fails with a ParseError.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	if strings.TrimSpace(req.JobDescription) == "" {
		return nil, ErrMissingJobDescription
	}

	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	apiReq := anthropic.MessageRequest{
		Model:     model,
		System:    analysisSystem,
		MaxTokens: s.defaultMaxTokens,
		Messages: []anthropic.MessageParam{{
			Role:    "user",
			Content: "Analyze this job description:\n\n" + req.JobDescription,
		}},
		Tools:      []anthropic.Tool{s.analysisTool.ProviderTool()},
		ToolChoice: &anthropic.ToolChoice{Type: "tool", Name: analysisToolName},
	}

	resp, err := s.provider.Messages(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	analysis, err := extractAnalysis(resp.Content)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Job analysis response was not parsable")
		return nil, err
	}
	return analysis, nil
}

// extractAnalysis prefers the forced tool's input; prose responses fall back
// to the first parsable JSON object in the text.
func extractAnalysis(blocks []anthropic.ContentBlock) (*Analysis, error) {
	for _, block := range blocks {
		if block.Type == "tool_use" && block.Input != nil {
			return decodeAnalysis(block.Input)
		}
	}

	for _, block := range blocks {
		if block.Type != "text" {
			continue
		}
		if obj, ok := firstJSONObject(block.Text); ok {
			return decodeAnalysis(obj)
		}
	}

	return nil, &ParseError{Reason: "no tool_use block or embedded JSON object in model response"}
}

func decodeAnalysis(input map[string]any) (*Analysis, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("encode analysis input: %v", err)}
	}
	var analysis Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("decode analysis: %v", err)}
	}
	return &analysis, nil
}

// firstJSONObject scans text for the first decodable JSON object. Trailing
// prose after the object is fine; the decoder stops at the closing brace.
func firstJSONObject(text string) (map[string]any, bool) {
	for i := strings.IndexByte(text, '{'); i >= 0 && i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		var obj map[string]any
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&obj); err == nil {
			return obj, true
		}
	}
	return nil, false
}
