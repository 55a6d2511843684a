package api

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/itchyny/gojq"
	"github.com/m-mizutani/logsherpa/internal"
	"github.com/m-mizutani/logsherpa/pkg/assembler"
	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/m-mizutani/logsherpa/pkg/parser"
	"github.com/m-mizutani/logsherpa/pkg/resolver"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// Response is a handler result before JSON rendering
type Response struct {
	Code    int
	Message interface{}
}

// Handler is the set of API operations
type Handler interface {
	Recommend(c *gin.Context) (*Response, Error)
	ParseLogs(c *gin.Context) (*Response, Error)
}

// SherpaHandler implements Handler on local files and S3 objects
type SherpaHandler struct {
	Region     string
	ParseLimit int
	ParserOpts parser.Options
	DownloadS3 func(obj models.S3Object) (string, error)
}

const (
	defaultParseLimit   = 1000
	maxReportedFailures = 10
)

// NewHandler is a constructor of SherpaHandler
func NewHandler(region string) *SherpaHandler {
	return &SherpaHandler{
		Region:     region,
		ParseLimit: defaultParseLimit,
		DownloadS3: internal.DownloadS3Object,
	}
}

func sendResponse(c *gin.Context, resp *Response, err Error) {
	var code int
	if resp != nil {
		code = resp.Code
	}

	Logger.WithFields(logrus.Fields{
		"path":       c.FullPath(),
		"request_id": c.GetHeader("x-request-id"),
		"ipaddr":     c.ClientIP(),
		"resp_code":  code,
		"error":      err,
	}).Info("Audit log")

	if err != nil {
		Logger.WithFields(logrus.Fields{
			"error": err,
			"url":   c.Request.URL,
		}).Error("Request failed")
		c.JSON(err.Code(), gin.H{"message": err.Message()})
	} else {
		c.JSON(resp.Code, resp.Message)
	}
}

type recommendRequest struct {
	Path            string `json:"path" binding:"required"`
	LogRegex        string `json:"log_regex"`
	ApacheLogFormat string `json:"apache_log_format"`
}

type recommendResponse struct {
	Recipe *models.Recipe `json:"recipe"`
}

// localInput resolves the request path to a local file. S3 objects are
// downloaded to a temp file; cleanup tells the caller to remove it.
func (x *SherpaHandler) localInput(path string) (local string, cleanup bool, apiErr Error) {
	if !models.IsS3URI(path) {
		return path, false, nil
	}

	obj, err := models.ParseS3URI(path, x.Region)
	if err != nil {
		return "", false, wrapUserError(err, 400, "Invalid S3 URI")
	}

	fpath, err := x.DownloadS3(obj)
	if err != nil {
		return "", false, typedError(err, "Failed to download log object")
	}
	return fpath, true, nil
}

// Recommend resolves a recipe for the posted input path
func (x *SherpaHandler) Recommend(c *gin.Context) (*Response, Error) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, wrapUserError(err, 400, "Invalid request body")
	}

	fpath, cleanup, apiErr := x.localInput(req.Path)
	if apiErr != nil {
		return nil, apiErr
	}
	if cleanup {
		defer os.Remove(fpath)
	}

	recipe, err := resolver.Resolve(fpath, resolver.Overrides{
		LiteralPattern: req.LogRegex,
		FormatString:   req.ApacheLogFormat,
	})
	if err != nil {
		return nil, typedError(err, "Failed to resolve a recipe")
	}

	return &Response{201, recommendResponse{Recipe: recipe}}, nil
}

type parseRequest struct {
	Path            string   `json:"path" binding:"required"`
	LogRegex        string   `json:"log_regex"`
	ApacheLogFormat string   `json:"apache_log_format"`
	Columns         []string `json:"columns"`
	Query           string   `json:"query"`
	Limit           int      `json:"limit"`
}

type parseResponse struct {
	Recipe   *models.Recipe        `json:"recipe"`
	Columns  []string              `json:"columns"`
	Logs     []models.ParsedRecord `json:"logs"`
	Stats    models.ParseStats     `json:"stats"`
	Failures []models.FailureEntry `json:"failures"`
}

// ParseLogs resolves, parses and assembles the posted input, optionally
// filtered by a jq query over each record.
func (x *SherpaHandler) ParseLogs(c *gin.Context) (*Response, Error) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, wrapUserError(err, 400, "Invalid request body")
	}

	var query *gojq.Query
	if req.Query != "" {
		q, err := gojq.Parse(req.Query)
		if err != nil {
			return nil, wrapUserError(err, 400, "Invalid jq query")
		}
		query = q
	}

	fpath, cleanup, apiErr := x.localInput(req.Path)
	if apiErr != nil {
		return nil, apiErr
	}
	if cleanup {
		defer os.Remove(fpath)
	}

	recipe, err := resolver.Resolve(fpath, resolver.Overrides{
		LiteralPattern: req.LogRegex,
		FormatString:   req.ApacheLogFormat,
	})
	if err != nil {
		return nil, typedError(err, "Failed to resolve a recipe")
	}

	result, err := parser.Parse(fpath, recipe, x.ParserOpts)
	if err != nil {
		return nil, typedError(err, "Failed to parse logs")
	}

	table := assembler.Assemble(result.Records, recipe, req.Columns)

	logs, filterErr := FilterRecords(table.Records, query)
	if filterErr != nil {
		return nil, wrapUserError(filterErr, 400, "Failed to apply jq query")
	}

	limit := req.Limit
	if limit <= 0 || limit > x.ParseLimit {
		limit = x.ParseLimit
	}
	if len(logs) > limit {
		logs = logs[:limit]
	}

	failures := result.Failures
	if len(failures) > maxReportedFailures {
		failures = failures[:maxReportedFailures]
	}

	return &Response{200, parseResponse{
		Recipe:   recipe,
		Columns:  table.Columns,
		Logs:     logs,
		Stats:    result.Stats,
		Failures: failures,
	}}, nil
}

// typedError maps engine errors to HTTP status codes
func typedError(err error, msg string) Error {
	switch errors.Cause(err).(type) {
	case *models.NotFoundError:
		return wrapUserError(err, 404, msg)
	case *models.InvalidFormatError:
		return wrapUserError(err, 400, msg)
	default:
		return wrapSystemError(err, 500, msg)
	}
}
