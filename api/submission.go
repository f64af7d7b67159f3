package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ml4e-club/ml4e-site-backend/database"
	"github.com/ml4e-club/ml4e-site-backend/errs"
	"github.com/ml4e-club/ml4e-site-backend/models"
	"github.com/ml4e-club/ml4e-site-backend/services"
)

const (
	multipartMemory = 8 << 20
	notifyTimeout   = 15 * time.Second
)

// submission is a parsed create request, whatever encoding it arrived in.
type submission struct {
	values  map[string]string
	members []models.Member
	file    *multipart.FileHeader
}

func (s *submission) value(key string) string {
	return strings.TrimSpace(s.values[key])
}

// optional returns nil for absent or blank fields so they are stored as null.
func (s *submission) optional(key string) *string {
	v := s.value(key)
	if v == "" {
		return nil
	}
	return &v
}

func (s *submission) require(fields ...string) error {
	for _, field := range fields {
		if s.value(field) == "" {
			return errs.NewMissingRequiredFieldError(field)
		}
	}
	return nil
}

// parseSubmission reads a multipart, urlencoded or JSON body capped at maxBytes.
// The first file found under one of fileFields is kept.
func parseSubmission(w http.ResponseWriter, r *http.Request, maxBytes int64, fileFields []string) (*submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	s := &submission{values: map[string]string{}}
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(min(maxBytes, multipartMemory)); err != nil {
			return nil, payloadError("multipart", err, maxBytes)
		}
		for key, vals := range r.MultipartForm.Value {
			if len(vals) > 0 {
				s.values[key] = vals[0]
			}
		}
		for _, field := range fileFields {
			if headers := r.MultipartForm.File[field]; len(headers) > 0 {
				s.file = headers[0]
				break
			}
		}
	case "application/json":
		if err := s.decodeJSON(r.Body); err != nil {
			return nil, payloadError("json", err, maxBytes)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, payloadError("form", err, maxBytes)
		}
		for key, vals := range r.PostForm {
			if len(vals) > 0 {
				s.values[key] = vals[0]
			}
		}
	}

	if raw := s.value("members"); raw != "" && s.members == nil {
		if err := json.Unmarshal([]byte(raw), &s.members); err != nil {
			return nil, errs.NewMalformedPayloadError("members", err)
		}
	}
	s.members = compactMembers(s.members)
	if len(s.members) > models.MaxMembers {
		return nil, errs.NewTooManyMembersError(models.MaxMembers)
	}

	return s, nil
}

// decodeJSON flattens a JSON object into string values. Members may be sent
// either as an array or as a JSON-encoded string, like the multipart form does.
func (s *submission) decodeJSON(body io.Reader) error {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&fields); err != nil {
		return err
	}

	for key, raw := range fields {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}

		if key == "members" && raw[0] == '[' {
			if err := json.Unmarshal(raw, &s.members); err != nil {
				return err
			}
			continue
		}

		var text string
		if raw[0] == '"' {
			if err := json.Unmarshal(raw, &text); err != nil {
				return err
			}
		} else {
			text = string(raw)
		}
		s.values[key] = text
	}
	return nil
}

func compactMembers(members []models.Member) []models.Member {
	out := members[:0]
	for _, m := range members {
		m.Name = strings.TrimSpace(m.Name)
		m.Profile = strings.TrimSpace(m.Profile)
		if m.Name == "" && m.Profile == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

func payloadError(payloadType string, err error, maxBytes int64) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errs.NewMaxBodySizeExceededError(maxBytes)
	}
	return errs.NewMalformedPayloadError(payloadType, err)
}

// submissions is the read and create pipeline shared by every collection.
// Entity handlers supply the field layout and how a record is built.
type submissions[T models.Record] struct {
	responder      Responder
	logger         zerolog.Logger
	entity         string // singular, as shown in messages
	collection     string
	folder         string
	required       []string
	fileFields     []string
	repo           database.Collection[T]
	images         services.ImageHost
	notifier       services.Notifier
	maxUploadBytes int64
}

type submissionDeps struct {
	images         services.ImageHost
	notifier       services.Notifier
	maxUploadBytes int64
}

func newSubmissions[T models.Record](handlerName string, repo database.Collection[T], deps submissionDeps) submissions[T] {
	logger := log.With().Str("handlerName", handlerName).Logger()

	return submissions[T]{
		responder:      NewResponder(logger),
		logger:         logger,
		repo:           repo,
		images:         deps.images,
		notifier:       deps.notifier,
		maxUploadBytes: deps.maxUploadBytes,
	}
}

func (h submissions[T]) list() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := h.repo.FindAll(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", h.collection, err))
			return
		}

		h.responder.WriteJSON(w, records)
	}
}

// create validates, uploads the optional image, inserts and responds 201.
// build receives the uploaded image URL, or nil when no file was attached.
func (h submissions[T]) create(build func(s *submission, image *string) (T, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := parseSubmission(w, r, h.maxUploadBytes, h.fileFields)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if s.file != nil && s.file.Size > h.maxUploadBytes {
			h.responder.WriteError(w, errs.NewMaxBodySizeExceededError(h.maxUploadBytes))
			return
		}

		if err := s.require(h.required...); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		image, err := h.uploadImage(r.Context(), s.file)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		record, title := build(s, image)
		if err := h.repo.Add(r.Context(), record); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", h.entity, err))
			return
		}

		logEvent := h.logger.Info().Str("id", record.RecordID()).Str("entity", h.entity)
		if userID, err := ctxGetUserID(r.Context()); err == nil {
			logEvent = logEvent.Str("submittedBy", userID)
		}
		logEvent.Msg("record created")
		h.notify(r.Context(), services.Submission{Entity: h.entity, Title: title, ID: record.RecordID()})

		h.responder.WriteCreated(w, fmt.Sprintf("%s created successfully", capitalize(h.entity)), record)
	}
}

func (h submissions[T]) uploadImage(ctx context.Context, header *multipart.FileHeader) (*string, error) {
	if header == nil {
		return nil, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, errs.NewUploadError(header.Filename, err)
	}
	defer file.Close()

	url, err := h.images.Upload(ctx, services.Asset{
		Folder:      h.folder,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		return nil, err
	}
	return &url, nil
}

// notify runs in the background; a failed e-mail never fails the request.
func (h submissions[T]) notify(ctx context.Context, sub services.Submission) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()

		if err := h.notifier.NotifySubmission(ctx, sub); err != nil {
			h.logger.Warn().Err(err).Str("entity", sub.Entity).Str("id", sub.ID).Msg("submission notification failed")
		}
	}()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
