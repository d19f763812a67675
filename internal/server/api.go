package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/atikulmunna/reel/internal/merge"
	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/search"
	"github.com/atikulmunna/reel/internal/ttyrec"
	"github.com/atikulmunna/reel/internal/worker"
	"github.com/gin-gonic/gin"
)

// uploadField is the multipart field carrying recording files.
const uploadField = "files"

func (s *Server) handleCacheStats(c *gin.Context) {
	stats, err := s.decompress.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleCacheClear(c *gin.Context) {
	stats, err := s.decompress.Clear(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleMerge merges uploaded recordings in upload order and returns the
// combined recording.
func (s *Server) handleMerge(c *gin.Context) {
	files, err := readUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	merged, err := s.loader.Merged(c.Request.Context(), files)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="merged.ttyrec"`)
	c.Data(http.StatusOK, "application/octet-stream", merged)
}

// handleSearch merges the uploads and searches the result. Form fields: q,
// regex and raw.
func (s *Server) handleSearch(c *gin.Context) {
	term := c.PostForm("q")
	regex, _ := strconv.ParseBool(c.DefaultPostForm("regex", "false"))
	raw, _ := strconv.ParseBool(c.DefaultPostForm("raw", "false"))

	if _, err := search.NewMatcher(term, regex); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	files, err := readUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	data, err := s.loader.Merged(ctx, files)
	if err != nil {
		s.fail(c, err)
		return
	}

	hits, err := s.search.Search(ctx, data, term, regex)
	if err != nil {
		s.fail(c, err)
		return
	}
	total := len(hits)
	if !raw {
		hits = search.Simplify(hits, s.opts.SimplifyWindow)
	}

	c.JSON(http.StatusOK, gin.H{
		"query": term,
		"regex": regex,
		"total": total,
		"hits":  hits,
	})
}

// handleInfo summarizes each upload without merging.
func (s *Server) handleInfo(c *gin.Context) {
	files, err := readUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw, err := s.loader.Raw(c.Request.Context(), files)
	if err != nil {
		s.fail(c, err)
		return
	}

	infos := make([]model.RecordingInfo, len(files))
	for i, data := range raw {
		infos[i] = ttyrec.Inspect(data)
		infos[i].Source = files[i].Name
	}
	c.JSON(http.StatusOK, infos)
}

func (s *Server) fail(c *gin.Context, err error) {
	var reqErr *worker.RequestError
	switch {
	case errors.As(err, &reqErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": reqErr.Message, "id": reqErr.ID})
	case errors.Is(err, merge.ErrNoRecordings):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func readUploads(c *gin.Context) ([]model.NamedFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("expected multipart form: %w", err)
	}
	headers := form.File[uploadField]
	if len(headers) == 0 {
		return nil, fmt.Errorf("no files in field %q", uploadField)
	}

	files := make([]model.NamedFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", h.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", h.Filename, err)
		}
		files = append(files, model.NamedFile{Name: h.Filename, Data: data})
	}
	return files, nil
}
