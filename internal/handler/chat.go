package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vistachat/vistachat/internal/handler/dto"
	"github.com/vistachat/vistachat/internal/middleware"
	"github.com/vistachat/vistachat/internal/service"
)

// Form field names of the chat endpoint.
const (
	FieldUserInputText = "user_input_text"
	FieldImageFile     = "image_file"
)

// multipartMemory is how much of a multipart body is kept in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// ChatHandler handles POST /api/v1/chat.
type ChatHandler struct {
	svc          *service.ChatService
	maxImageSize int64
	logger       *slog.Logger
}

// NewChatHandler creates a new ChatHandler. maxImageSize bounds the
// image attachment in bytes.
func NewChatHandler(svc *service.ChatService, maxImageSize int64, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		svc:          svc,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

// Chat accepts a multipart or urlencoded form with an optional text
// field and an optional image file. The bearer credential is optional;
// callers without a valid one are served anonymously.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Malformed form body")
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	image, status, err := h.readImage(r)
	if err != nil {
		code := "INVALID_FORM"
		if status == http.StatusRequestEntityTooLarge {
			code = "IMAGE_TOO_LARGE"
		}
		writeError(w, status, code, err.Error())
		return
	}

	result, err := h.svc.Handle(r.Context(), service.ChatInput{
		Text:       r.FormValue(FieldUserInputText),
		Image:      image,
		Credential: middleware.BearerToken(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToChatResponse(result.SessionID, result.AIResponse, result.ModelUsed, result.History))
}

// readImage returns the attached image, or nil when none was sent.
// An empty file part counts as no image.
func (h *ChatHandler) readImage(r *http.Request) (*service.RawImage, int, error) {
	if r.MultipartForm == nil {
		return nil, 0, nil
	}

	file, header, err := r.FormFile(FieldImageFile)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("could not read image_file")
	}
	defer file.Close()

	if h.maxImageSize > 0 && header.Size > h.maxImageSize {
		return nil, http.StatusRequestEntityTooLarge, errors.New("image_file exceeds the maximum size")
	}

	reader := io.Reader(file)
	if h.maxImageSize > 0 {
		reader = io.LimitReader(file, h.maxImageSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("could not read image_file")
	}
	if h.maxImageSize > 0 && int64(len(data)) > h.maxImageSize {
		return nil, http.StatusRequestEntityTooLarge, errors.New("image_file exceeds the maximum size")
	}
	if len(data) == 0 {
		return nil, 0, nil
	}

	return &service.RawImage{
		Data:     data,
		MIMEType: mediaType(header.Header.Get("Content-Type")),
		Filename: header.Filename,
	}, 0, nil
}

// mediaType strips parameters; "" lets the service apply its default.
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	mt = strings.ToLower(strings.TrimSpace(mt))
	if mt == "application/octet-stream" {
		return ""
	}
	return mt
}

// handleServiceError maps service errors to HTTP responses.
func (h *ChatHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", service.ErrInvalidInput.Error())
	case errors.Is(err, service.ErrUpstreamUnavailable):
		writeError(w, http.StatusInternalServerError, "UPSTREAM_UNAVAILABLE", "Failed to upload image and no text provided")
	case errors.Is(err, service.ErrModelInvocationFailed):
		writeError(w, http.StatusInternalServerError, "MODEL_INVOCATION_FAILED", "Error communicating with the AI model")
	default:
		h.logger.ErrorContext(r.Context(), "internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
