package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"k8s.io/utils/clock"

	"github.com/ml4e-club/ml4e-site-backend/models"
)

type FormState int

const (
	FormEditing FormState = iota
	FormSubmitting
	FormSucceeded
	FormFailed
)

func (s FormState) String() string {
	switch s {
	case FormEditing:
		return "editing"
	case FormSubmitting:
		return "submitting"
	case FormSucceeded:
		return "succeeded"
	case FormFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	DefaultRedirectDelay  = 2 * time.Second
	DefaultSuccessMessage = "Submitted successfully! Redirecting..."
	DefaultFailureMessage = "Something went wrong. Please try again."
)

var (
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	ErrTooManyMembers = fmt.Errorf("at most %d members are allowed", models.MaxMembers)
	ErrFormClosed     = errors.New("form is closed")
)

type attachment struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// FormController holds one create form and submits it as multipart. On success
// it clears itself and navigates to the listing page after a delay.
type FormController struct {
	client        *http.Client
	clock         clock.Clock
	endpoint      string
	listingPath   string
	navigate      func(path string)
	redirectDelay time.Duration
	token         string
	success       string
	failure       string
	logger        zerolog.Logger

	mu             sync.Mutex
	state          FormState
	fields         map[string]string
	members        []models.Member
	file           *attachment
	message        string
	cancelRedirect context.CancelFunc
	closed         bool
	wg             sync.WaitGroup
}

type FormOption func(*FormController)

func WithRedirectDelay(d time.Duration) FormOption {
	return func(f *FormController) {
		f.redirectDelay = d
	}
}

func WithMessages(success, failure string) FormOption {
	return func(f *FormController) {
		f.success = success
		f.failure = failure
	}
}

// WithBearerToken authenticates submissions against a guarded backend.
func WithBearerToken(token string) FormOption {
	return func(f *FormController) {
		f.token = token
	}
}

func NewFormController(client *http.Client, clk clock.Clock, endpoint, listingPath string, navigate func(string), opts ...FormOption) *FormController {
	if client == nil {
		client = http.DefaultClient
	}
	f := &FormController{
		client:        client,
		clock:         clk,
		endpoint:      endpoint,
		listingPath:   listingPath,
		navigate:      navigate,
		redirectDelay: DefaultRedirectDelay,
		success:       DefaultSuccessMessage,
		failure:       DefaultFailureMessage,
		logger:        log.With().Str("component", "form").Str("endpoint", endpoint).Logger(),
		fields:        map[string]string{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FormController) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Message is the confirmation or failure text currently shown.
func (f *FormController) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

func (f *FormController) Value(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields[field]
}

func (f *FormController) Set(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editLocked()
	f.fields[field] = value
}

// Attach replaces any previously attached file.
func (f *FormController) Attach(field, filename, contentType string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editLocked()
	f.file = &attachment{field: field, filename: filename, contentType: contentType, data: data}
}

func (f *FormController) AddMember(member models.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.members) >= models.MaxMembers {
		return ErrTooManyMembers
	}
	f.editLocked()
	f.members = append(f.members, member)
	return nil
}

func (f *FormController) RemoveMember(i int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.members) {
		return
	}
	f.editLocked()
	f.members = slices.Delete(f.members, i, i+1)
}

func (f *FormController) Members() []models.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.members)
}

// editLocked leaves a finished state as soon as the user touches the form.
func (f *FormController) editLocked() {
	if f.state == FormSucceeded || f.state == FormFailed {
		f.state = FormEditing
		f.message = ""
	}
}

// Submit posts the form. Any non-201 answer or transport error leaves the
// contents intact and returns the cause.
func (f *FormController) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFormClosed
	}
	if f.state == FormSubmitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	f.state = FormSubmitting
	f.message = ""
	fields := maps.Clone(f.fields)
	members := slices.Clone(f.members)
	file := f.file
	f.mu.Unlock()

	err := f.post(ctx, fields, members, file)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.logger.Warn().Err(err).Msg("submission failed")
		f.state = FormFailed
		f.message = f.failure
		return err
	}

	f.state = FormSucceeded
	f.message = f.success
	f.fields = map[string]string{}
	f.members = nil
	f.file = nil
	if !f.closed {
		f.scheduleRedirectLocked()
	}
	return nil
}

func (f *FormController) post(ctx context.Context, fields map[string]string, members []models.Member, file *attachment) error {
	body, contentType, err := encodeMultipart(fields, members, file)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (f *FormController) scheduleRedirectLocked() {
	if f.cancelRedirect != nil {
		f.cancelRedirect()
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancelRedirect = cancel

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()

		timer := f.clock.NewTimer(f.redirectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}

		f.mu.Lock()
		if f.closed || ctx.Err() != nil {
			f.mu.Unlock()
			return
		}
		if f.state == FormSucceeded {
			f.state = FormEditing
			f.message = ""
		}
		f.cancelRedirect = nil
		f.mu.Unlock()

		if f.navigate != nil {
			f.navigate(f.listingPath)
		}
	}()
}

// Close cancels a pending redirect.
func (f *FormController) Close() {
	f.mu.Lock()
	f.closed = true
	if f.cancelRedirect != nil {
		f.cancelRedirect()
		f.cancelRedirect = nil
	}
	f.mu.Unlock()

	f.wg.Wait()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(fields map[string]string, members []models.Member, file *attachment) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, key := range slices.Sorted(maps.Keys(fields)) {
		if err := writer.WriteField(key, fields[key]); err != nil {
			return nil, "", err
		}
	}

	if len(members) > 0 {
		encoded, err := json.Marshal(members)
		if err != nil {
			return nil, "", err
		}
		if err := writer.WriteField("members", string(encoded)); err != nil {
			return nil, "", err
		}
	}

	if file != nil {
		contentType := file.contentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(file.field), quoteEscaper.Replace(file.filename)))
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.data); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &body, writer.FormDataContentType(), nil
}
