package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/thywilljoshua/urdu-link/internal/ai"
	"github.com/thywilljoshua/urdu-link/internal/domain"
)

// maxMediaUpload bounds image and video analysis uploads.
const maxMediaUpload = ai.MaxInlineVideo + formOverhead

type generateImageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

type chatRequest struct {
	History []ai.Message `json:"history"`
	Message string       `json:"message"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type textResponse struct {
	Text string `json:"text"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return domain.ValidationError("invalid request body", err)
	}
	return nil
}

// handleGenerateImage returns the picture itself as a download.
func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generateImageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, domain.ValidationError("prompt is required", nil))
		return
	}
	img, err := s.ai.GenerateImage(r.Context(), req.Prompt, req.AspectRatio)
	if err != nil {
		s.writeError(w, err)
		return
	}
	attach(w, img.MIMEType, ai.GeneratedImageName)
	_, _ = w.Write(img.Data)
}

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	s.analyze(w, r, s.ai.AnalyzeImage)
}

func (s *Server) handleAnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	s.analyze(w, r, s.ai.AnalyzeVideo)
}

type analyzeFunc func(ctx context.Context, data []byte, mimeType, prompt string) (string, error)

// analyze reads multipart "file" and optional "prompt" and returns the
// model's description.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request, fn analyzeFunc) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMediaUpload)
	if err := r.ParseMultipartForm(DefaultMultipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, domain.SizeLimitError(fmt.Sprintf("upload exceeds %d bytes", ai.MaxInlineVideo)))
			return
		}
		s.writeError(w, domain.ValidationError("expected a multipart form", err))
		return
	}
	file, fh, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, domain.ValidationError("file is required", err))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, domain.IOError("read upload", err))
		return
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	text, err := fn(r.Context(), data, mimeType, r.FormValue("prompt"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	reply, err := s.ai.Chat(r.Context(), req.History, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleFast(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, domain.ValidationError("prompt is required", nil))
		return
	}
	text, err := s.ai.FastResponse(r.Context(), req.Prompt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}
