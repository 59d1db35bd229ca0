package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/axellelanca/magiccode/internal/auth"
	customerrors "github.com/axellelanca/magiccode/internal/errors"
	"github.com/axellelanca/magiccode/internal/models"
	"github.com/axellelanca/magiccode/internal/services"
)

const mediaFileField = "media-file"

// Uploads stores files received with a request.
type Uploads interface {
	RootDir() string
	URLPrefix() string
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
}

// RecordRequest is the body of create and update calls, as JSON or as a
// multipart form carrying a "media-file" part.
type RecordRequest struct {
	Name            string `json:"qrName" form:"qrName"`
	Type            string `json:"type" form:"type"`
	URL             string `json:"url" form:"url"`
	Text            string `json:"text" form:"text"`
	DotColor        string `json:"qrDotColor" form:"qrDotColor"`
	BackgroundColor string `json:"backgroundColor" form:"backgroundColor"`
	DotStyle        string `json:"dotStyle" form:"dotStyle"`
	CornerStyle     string `json:"cornerStyle" form:"cornerStyle"`
	ApplyGradient   string `json:"applyGradient" form:"applyGradient"`
	Logo            string `json:"logo" form:"logo"`
}

func (r RecordRequest) input() services.RecordInput {
	return services.RecordInput{
		Variant: models.Variant(r.Type),
		URL:     r.URL,
		Text:    r.Text,
		Display: models.Display{
			Name:            r.Name,
			DotColor:        r.DotColor,
			BackgroundColor: r.BackgroundColor,
			DotStyle:        r.DotStyle,
			CornerStyle:     r.CornerStyle,
			ApplyGradient:   r.ApplyGradient,
			Logo:            r.Logo,
		},
	}
}

// CreateRecordHandler handles POST /api/v1/records.
func CreateRecordHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindRecord(c, deps)
		if !ok {
			return
		}

		record, err := deps.Records.CreateRecord(c.Request.Context(), auth.AccountID(c), in)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Your Magic Code was created successfully.",
			"type":    "success",
			"record":  record,
			"link":    publicURL(c, deps.BaseURL, record.Code),
		})
	}
}

// UpdateRecordHandler handles PUT /api/v1/records/:code.
func UpdateRecordHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindRecord(c, deps)
		if !ok {
			return
		}

		record, err := deps.Records.UpdateRecord(c.Request.Context(), auth.AccountID(c), c.Param("code"), in)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Magic Code updated successfully",
			"type":    "success",
			"record":  record,
			"link":    publicURL(c, deps.BaseURL, record.Code),
		})
	}
}

// GetRecordHandler handles GET /api/v1/records/:code.
func GetRecordHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := deps.Records.GetForEdit(c.Request.Context(), auth.AccountID(c), c.Param("code"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"type":   "success",
			"record": record,
			"link":   publicURL(c, deps.BaseURL, record.Code),
		})
	}
}

// ListRecordsHandler handles GET /api/v1/records?page=.
func ListRecordsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := deps.Records.ListByOwner(c.Request.Context(), auth.AccountID(c), pageParam(c), deps.RecordsPerPage)
		if err != nil {
			writeError(c, err)
			return
		}

		message := "Here are your Magic Codes."
		if page.Total == 0 {
			message = "No Magic Codes found."
		}
		c.JSON(http.StatusOK, gin.H{
			"message":     message,
			"type":        "success",
			"records":     page.Records,
			"total":       page.Total,
			"page":        page.Page,
			"total_pages": page.TotalPages,
		})
	}
}

// DeleteRecordHandler handles DELETE /api/v1/records/:id.
func DeleteRecordHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 0)
		if err != nil || id == 0 {
			writeError(c, customerrors.ErrNotFound)
			return
		}

		if err := deps.Records.DeleteRecord(c.Request.Context(), auth.AccountID(c), uint(id)); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Magic Code deleted successfully", "type": "success"})
	}
}

// bindRecord decodes the request and stores an attached media file. On
// failure the response has been written.
func bindRecord(c *gin.Context, deps Dependencies) (services.RecordInput, bool) {
	if deps.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, deps.MaxUploadBytes)
	}

	var req RecordRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, err)
			return services.RecordInput{}, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body: " + err.Error(), "type": "error"})
		return services.RecordInput{}, false
	}
	in := req.input()

	if in.Variant != models.VariantMedia || deps.Uploads == nil {
		return in, true
	}
	file, err := c.FormFile(mediaFileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return in, true
		}
		writeError(c, err)
		return services.RecordInput{}, false
	}

	f, err := file.Open()
	if err != nil {
		writeError(c, err)
		return services.RecordInput{}, false
	}
	defer f.Close()

	in.MediaPath, err = deps.Uploads.Save(c.Request.Context(), file.Filename, f)
	if err != nil {
		writeError(c, err)
		return services.RecordInput{}, false
	}
	return in, true
}
