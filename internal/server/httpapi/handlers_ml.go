package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/server/services"
	"github.com/dmitrijs2005/leftoverchef/internal/server/storage"
	"github.com/go-chi/chi/v5"
)

// uploadFields are the multipart fields an image may arrive in, in order of
// preference.
var uploadFields = []string{"image", "file"}

// formatNames are the extensions advertised by GET /ml/formats.
var formatNames = []string{"jpeg", "jpg", "png", "webp"}

const (
	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20
)

func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	ownerID := mustIdentity(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	up, err := h.readUpload(r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		h.writeUploadError(w, r, err)
		return
	}

	rec, err := h.ingestion.Submit(r.Context(), ownerID, *up)
	if err != nil {
		h.writeUploadError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{
		"message": "Image processed successfully",
		"data":    rec,
	})
}

func (h *Handler) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, common.ErrFileTooLarge) {
		h.logger.Debug(r.Context(), "upload rejected", "error", err)
		writeError(w, http.StatusBadRequest, kindValidation,
			fmt.Sprintf("File too large. Maximum size is %dMB", h.maxBytes>>20))
		return
	}
	h.writeMappedError(r.Context(), w, "predict", err)
}

func (h *Handler) readUpload(r *http.Request) (*services.Upload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe), strings.Contains(err.Error(), "request body too large"):
			return nil, fmt.Errorf("%w: request body over %d bytes", common.ErrFileTooLarge, h.maxBytes)
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, io.EOF):
			return nil, common.ErrMissingFile
		default:
			return nil, fmt.Errorf("%w: malformed multipart body", common.ErrValidation)
		}
	}

	for _, field := range uploadFields {
		f, hdr, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable %q part", common.ErrValidation, field)
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
		if err != nil {
			return nil, fmt.Errorf("error reading upload: %w", err)
		}
		return &services.Upload{
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Data:        data,
		}, nil
	}

	return nil, common.ErrMissingFile
}

func (h *Handler) formats(w http.ResponseWriter, r *http.Request) {
	body := envelope{
		"formats":          formatNames,
		"supportedFormats": services.AllowedImageTypes,
		"maxSizeMB":        h.maxBytes >> 20,
		"maxFileSize":      h.maxBytes,
	}
	if id, ok := IdentityFrom(r.Context()); ok {
		body["userId"] = id.ID
	}
	writeSuccess(w, http.StatusOK, body)
}

func (h *Handler) mlHealth(w http.ResponseWriter, r *http.Request) {
	mode := "mock"
	if h.mlConfigured {
		mode = "configured"
	}
	writeSuccess(w, http.StatusOK, envelope{
		"mlService":           mode,
		"mlServiceConfigured": h.mlConfigured,
		"provider":            h.provider,
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	writeSuccess(w, http.StatusOK, envelope{
		"status":    "healthy",
		"uptime":    now.Sub(h.started).Seconds(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) serveImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if err := storage.ValidName(name); err != nil {
		writeError(w, http.StatusNotFound, kindNotFound, "Image not found")
		return
	}
	h.images.Serve(w, r, name)
}
