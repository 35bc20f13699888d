package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// multipartOverhead is allowed on top of the upload limit for form framing.
const multipartOverhead = 1 << 20

func (s *Server) health(c *gin.Context) {
	report := HealthReport{Status: "healthy"}
	if s.cfg.Health != nil {
		report = s.cfg.Health(c.Request.Context())
		if report.Status == "" {
			report.Status = "healthy"
		}
	}
	report.Timestamp = time.Now().UTC()
	c.JSON(http.StatusOK, report)
}

func (s *Server) upload(c *gin.Context) {
	limit := s.cfg.MaxUploadBytes + multipartOverhead
	if c.Request.ContentLength > limit {
		s.abortTooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.abortTooLarge(c)
			return
		}
		abortWithError(c, fmt.Errorf("%w: missing form file \"file\": %v", domain.ErrValidation, err))
		return
	}

	f, err := header.Open()
	if err != nil {
		abortWithError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		abortWithError(c, fmt.Errorf("read upload: %w", err))
		return
	}

	doc, err := s.registry.Register(c.Request.Context(), data, header.Filename)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDocumentResponse(doc))
}

func (s *Server) abortTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorResponse{
		Error:     fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadBytes),
		RequestID: GetRequestID(c),
	})
}

func (s *Server) analyze(c *gin.Context) {
	id := c.Param("id")

	async, _ := strconv.ParseBool(c.Query("async"))
	if async {
		doc, err := s.registry.StartIngest(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, toDocumentResponse(doc))
		return
	}

	doc, err := s.registry.Ingest(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	res, err := s.registry.Query(c.Request.Context(), req.DocumentID, req.Question)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toChatResponse(res))
}

func (s *Server) listDocuments(c *gin.Context) {
	docs, err := s.registry.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := documentListResponse{
		Documents: make([]documentResponse, 0, len(docs)),
		Total:     len(docs),
	}
	for i := range docs {
		out.Documents = append(out.Documents, toDocumentResponse(&docs[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getDocument(c *gin.Context) {
	info, err := s.registry.Info(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentDetailResponse{
		documentResponse: toDocumentResponse(&info.Document),
		Collection: collectionInfo{
			Name:        info.Namespace,
			VectorCount: info.VectorCount,
		},
	})
}

func (s *Server) deleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := s.registry.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document deleted", "document_id": id})
}

// events streams progress events until the client disconnects.
// ?document_id= limits the stream to one document.
func (s *Server) events(c *gin.Context) {
	filter := c.Query("document_id")
	sub := s.registry.Subscribe(0)
	defer sub.Unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-sub.Events():
			if !ok {
				return false
			}
			if filter != "" && e.DocumentID != filter {
				return true
			}
			c.SSEvent(string(e.Kind), e)
			return true
		}
	})
}
