package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/inksign/inksign/backend/go-services/internal/document"
	"github.com/inksign/inksign/backend/go-services/internal/document/render"
	"github.com/inksign/inksign/backend/go-services/internal/document/service"
	"github.com/inksign/inksign/backend/go-services/pkg/logger"
	"github.com/inksign/inksign/backend/go-services/pkg/middleware"
)

// DefaultMaxUpload bounds request bodies when no limit is configured.
const DefaultMaxUpload = 10 << 20

type handler struct {
	svc       *service.Service
	dir       service.Directory
	maxUpload int64
}

// RegisterDocumentRoutes mounts the document lifecycle API on rg. rg must
// already run middleware.AuthMiddleware and middleware.PrincipalMiddleware.
func RegisterDocumentRoutes(rg *gin.RouterGroup, svc *service.Service, dir service.Directory, maxUpload int64) {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	h := &handler{svc: svc, dir: dir, maxUpload: maxUpload}
	rg.GET("/documents", h.list)
	rg.POST("/documents", h.create)
	rg.GET("/documents/:id", h.get)
	rg.POST("/documents/:id/sign", h.sign)
	rg.POST("/documents/:id/complete", h.complete)
	rg.GET("/documents/:id/preview", h.preview)
}

func principal(c *gin.Context) (string, bool) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "no principal"})
		return "", false
	}
	return u.ID, true
}

// writeError maps lifecycle errors onto HTTP. On reads a Forbidden answer is
// reported as not found so documents of others stay invisible.
func writeError(c *gin.Context, err error, read bool) {
	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, document.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, document.ErrForbidden):
		if read {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": document.ErrNotFound.Error()})
			return
		}
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, document.ErrInvalidState):
		status, kind = http.StatusConflict, "invalid_state"
	case errors.Is(err, document.ErrValidation):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, document.ErrRecipientNotFound):
		status, kind = http.StatusUnprocessableEntity, "recipient_not_found"
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": kind, "message": msg})
}

// list serves ?view=inbox|sent|all (default all).
func (h *handler) list(c *gin.Context) {
	pid, ok := principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var (
		docs []*document.Document
		err  error
	)
	switch view := strings.ToLower(c.DefaultQuery("view", "all")); view {
	case "all":
		docs, err = h.svc.List(ctx, pid)
	case "inbox", "sent":
		var inbox, sent []*document.Document
		inbox, sent, err = h.svc.Dashboard(ctx, pid)
		docs = inbox
		if view == "sent" {
			docs = sent
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "view must be inbox, sent or all"})
		return
	}
	if err != nil {
		writeError(c, err, true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

type createRequest struct {
	Title          string  `json:"title" form:"title"`
	RecipientID    string  `json:"recipientId" form:"recipientId"`
	RecipientEmail string  `json:"recipientEmail" form:"recipientEmail"`
	FileData       *string `json:"fileData"`
	FileName       *string `json:"fileName"`
	FileType       *string `json:"fileType"`
}

// create accepts JSON or a multipart form with an optional "file" part. An
// uploaded file is reduced to a placeholder; its content is not stored.
func (h *handler) create(c *gin.Context) {
	pid, ok := principal(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	var (
		req  createRequest
		file *document.File
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": err.Error()})
			return
		}
		fh, err := c.FormFile("file")
		switch {
		case err == nil:
			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			file = &document.File{
				Name: fh.Filename,
				Type: ct,
				Data: service.PlaceholderFileData(fh.Filename, ct, fh.Size),
			}
		case errors.Is(err, http.ErrMissingFile):
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": err.Error()})
			return
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": err.Error()})
			return
		}
		if req.FileName != nil && *req.FileName != "" {
			file = &document.File{Name: *req.FileName}
			if req.FileType != nil {
				file.Type = *req.FileType
			}
			if req.FileData != nil {
				file.Data = *req.FileData
			}
		}
	}

	d, err := h.svc.Create(c.Request.Context(), pid, service.CreateInput{
		Title:          req.Title,
		RecipientID:    req.RecipientID,
		RecipientEmail: req.RecipientEmail,
		File:           file,
	})
	if err != nil {
		writeError(c, err, false)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *handler) get(c *gin.Context) {
	pid, ok := principal(c)
	if !ok {
		return
	}
	d, access, err := h.svc.Get(c.Request.Context(), pid, c.Param("id"))
	if err != nil {
		writeError(c, err, true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": d, "role": access.String()})
}

type signRequest struct {
	Mode      string `json:"mode"`
	Signature string `json:"signature"`
	Strokes   int    `json:"strokes"`
	Complete  bool   `json:"complete"`
}

func (h *handler) sign(c *gin.Context) {
	pid, ok := principal(c)
	if !ok {
		return
	}
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": err.Error()})
		return
	}
	mode := document.SignatureMode(strings.ToLower(strings.TrimSpace(req.Mode)))
	if mode == "" {
		mode = document.SignatureTyped
	}
	d, err := h.svc.Sign(c.Request.Context(), c.Param("id"), pid, document.Signature{
		Mode:     mode,
		Typed:    req.Signature,
		Strokes:  req.Strokes,
		Complete: req.Complete,
	})
	if err != nil {
		writeError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handler) complete(c *gin.Context) {
	pid, ok := principal(c)
	if !ok {
		return
	}
	d, err := h.svc.Complete(c.Request.Context(), c.Param("id"), pid)
	if err != nil {
		writeError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handler) preview(c *gin.Context) {
	pid, ok := principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	d, _, err := h.svc.Get(ctx, pid, c.Param("id"))
	if err != nil {
		writeError(c, err, true)
		return
	}
	party := func(id string) render.Party {
		u, err := h.dir.GetByID(ctx, id)
		if err != nil {
			return render.Party{Email: id}
		}
		return render.Party{Name: u.Name, Email: u.Email}
	}
	pdf, err := render.SummaryPDF(d, party(d.SenderID), party(d.RecipientID))
	if err != nil {
		writeError(c, err, true)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+d.ID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
