package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"quizforge/internal/facts"
	"quizforge/internal/ocr"
	"quizforge/internal/session"
	"quizforge/internal/store"
)

// maxUploadBytes bounds multipart uploads.
const maxUploadBytes = 32 << 20

type corpusRequest struct {
	Text  string `json:"text"`
	Topic string `json:"topic"`
}

func (s *Server) handleCorpus(w http.ResponseWriter, r *http.Request) {
	var req corpusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	s.runCollection(w, r, req.Text, req.Topic)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.ocr == nil {
		s.respondError(w, http.StatusServiceUnavailable, "image uploads are not configured")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	kind := ocr.SourceKind(r.FormValue("kind"))
	if kind == "" {
		kind = ocr.KindImage
	}
	if !kind.Valid() {
		s.respondError(w, http.StatusBadRequest, "kind must be image or frame")
		return
	}

	text, err := s.ocr.TextFromImage(r.Context(), file, kind)
	if err != nil {
		s.logger.Error("image-to-text failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "image-to-text extraction failed")
		return
	}
	if text == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "no text found in image")
		return
	}

	s.runCollection(w, r, text, r.FormValue("topic"))
}

// runCollection is the single entry point for both text and image
// sources: by this point every source is plain corpus text.
func (s *Server) runCollection(w http.ResponseWriter, r *http.Request, text, topic string) {
	corpus := facts.NewCorpus(text, topic)
	summary, err := s.collector.Run(r.Context(), corpus)
	if err != nil {
		s.logger.Error("collection run failed",
			zap.String("corpus_id", corpus.ID),
			zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, summary)
}

type batchQuestion struct {
	ID                int64    `json:"id"`
	Stem              string   `json:"stem"`
	Options           []string `json:"options"`
	Topic             string   `json:"topic,omitempty"`
	Difficulty        int      `json:"difficulty,omitempty"`
	PresentationOrder []int    `json:"presentation_order"`
}

func (s *Server) handleNextBatch(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user is required")
		return
	}

	opts := session.BatchOptions{
		Topic:   r.URL.Query().Get("topic"),
		Shuffle: r.URL.Query().Get("shuffle") == "true",
	}
	if c := r.URL.Query().Get("count"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		opts.Count = n
	}

	batch, err := s.sessions.NextBatch(r.Context(), userID, opts)
	if err != nil {
		s.logger.Error("next batch failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The answer key stays server side; options keep canonical order
	// and the client applies the presentation permutation.
	out := make([]batchQuestion, len(batch))
	for i, q := range batch {
		out[i] = batchQuestion{
			ID:                q.ID,
			Stem:              q.Stem,
			Options:           q.Options,
			Topic:             q.Topic,
			Difficulty:        q.Difficulty,
			PresentationOrder: session.PresentationOrder(len(q.Options)),
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"questions": out})
}

type answerRequest struct {
	UserID        string `json:"user_id"`
	QuestionID    int64  `json:"question_id"`
	AnsweredIndex int    `json:"answered_index"`
}

type answerResponse struct {
	Correct    bool  `json:"correct"`
	QuestionID int64 `json:"question_id"`
	RecordID   int64 `json:"record_id"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.QuestionID == 0 {
		s.respondError(w, http.StatusBadRequest, "user_id and question_id are required")
		return
	}

	row, err := s.sessions.RecordAnswer(r.Context(), req.UserID, req.QuestionID, req.AnsweredIndex)
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "question not found")
		return
	}
	if errors.Is(err, store.ErrAnswerOutOfRange) {
		s.respondError(w, http.StatusBadRequest, "answered_index is out of range")
		return
	}
	if err != nil {
		s.logger.Error("record answer failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, answerResponse{
		Correct:    row.Correct,
		QuestionID: row.QuestionID,
		RecordID:   row.ID,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user is required")
		return
	}

	summary, err := s.sessions.Summary(r.Context(), userID)
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
