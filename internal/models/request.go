package models

import (
	"strings"
	"unicode/utf8"
)

const MaxDocumentChars = 200_000

type CreateDocumentRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// implements the Validator interface
func (r *CreateDocumentRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return &ErrorResponse{Code: "missing_title", Message: "title is required"}
	}
	if strings.TrimSpace(r.Text) == "" {
		return &ErrorResponse{Code: "missing_text", Message: "text is required"}
	}
	if utf8.RuneCountInString(r.Text) > MaxDocumentChars {
		return &ErrorResponse{Code: "document_too_large", Message: "text must be at most 200000 characters"}
	}
	return nil
}

type StartSessionRequest struct {
	DocumentID string        `json:"documentId"`
	Config     SessionConfig `json:"config"`
}

func (r *StartSessionRequest) Validate() error {
	if strings.TrimSpace(r.DocumentID) == "" {
		return &ErrorResponse{Code: "missing_document_id", Message: "documentId is required"}
	}
	r.Config = r.Config.WithDefaults()
	r.Config.Difficulty = Difficulty(strings.ToLower(string(r.Config.Difficulty)))
	return r.Config.Validate()
}

type SubmitAnswerRequest struct {
	Text string `json:"text"`
}

func (r *SubmitAnswerRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return &ErrorResponse{Code: "empty_answer", Message: "answer text must not be empty"}
	}
	return nil
}

// contains all languages the code runner accepts (in lowercase)
var SupportedLanguages = map[string]bool{
	"python": true,
	"java":   true,
	"cpp":    true,
}

type SubmitCodeRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

func (r *SubmitCodeRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return &ErrorResponse{Code: "missing_code", Message: "code is required"}
	}
	r.Language = strings.ToLower(strings.TrimSpace(r.Language))
	if r.Language == "" {
		return &ErrorResponse{Code: "missing_language", Message: "language is required"}
	}
	if !SupportedLanguages[r.Language] {
		return &ErrorResponse{Code: "unsupported_language", Message: "language must be one of python/java/cpp"}
	}
	return nil
}
