package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"examia/internal/apperr"
	"examia/internal/auth"
	"examia/internal/buckets"
	"examia/internal/model"
	"examia/internal/service"
	"examia/internal/storage"
)

// Authenticator exchanges operator credentials for a capability.
type Authenticator interface {
	Login(identity, secret string) (auth.Capability, error)
}

// Dependencies are the collaborators the HTTP surface needs.
type Dependencies struct {
	DB      *sql.DB
	Catalog service.CatalogService
	Assets  service.AssetService
	Auth    Authenticator
	Store   storage.Storage
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", HealthCheck(deps.DB))
	app.Get("/healthz", LivenessProbe())

	app.Get("/questions", ListQuestions(deps.Catalog))
	app.Post("/questions", CreateQuestion(deps.Catalog))
	app.Delete("/questions/:id", DeleteQuestion(deps.Catalog))
	app.Get("/buckets", ListBuckets(deps.Catalog))

	app.Post("/upload-solution-image", UploadSolutionImage(deps.Assets))
	app.Get("/assets/*", ServeAsset(deps.Store))

	app.Post("/admin/login", Login(deps.Auth))
}

// yearValue accepts a year as a JSON number or a numeric string.
type yearValue int

func (y *yearValue) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*y = 0
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errInvalidYear
	}
	*y = yearValue(n)
	return nil
}

var errInvalidYear = errors.New("year must be an integer")

type createQuestionRequest struct {
	Subject       string    `json:"subject"`
	Year          yearValue `json:"year" swaggertype:"integer"`
	Mode          string    `json:"mode"`
	Bucket        string    `json:"bucket"`
	Question      string    `json:"question"`
	Solution      string    `json:"solution,omitempty"`
	SolutionImage string    `json:"solution_image,omitempty"`
}

type loginRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

type idResponse struct {
	ID string `json:"id"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// bearer returns the capability from "Authorization: Bearer <token>", or "".
func bearer(c *fiber.Ctx) auth.Capability {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return auth.Capability(strings.TrimSpace(h[7:]))
}

// parseFilter reads subject, year, mode and bucket from the query string.
func parseFilter(c *fiber.Ctx) (model.Filter, bool) {
	f := model.Filter{
		Subject: c.Query("subject"),
		Mode:    model.Mode(c.Query("mode")),
		Bucket:  c.Query("bucket"),
	}
	if ys := c.Query("year"); ys != "" {
		y, err := strconv.Atoi(ys)
		if err != nil {
			return f, false
		}
		f.Year = y
	}
	return f, true
}

// HealthCheck godoc
// @Summary Readiness probe
// @Description Checks database connectivity.
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if db == nil || db.PingContext(ctx) != nil {
			return writeError(c, fiber.StatusServiceUnavailable, apperr.CodeUnavailable, "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe godoc
// @Summary Liveness probe
// @Tags ops
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListQuestions godoc
// @Summary Query questions
// @Description Every supplied field must match exactly. Results are in insertion order.
// @Tags questions
// @Produce json
// @Param subject query string false "Subject"
// @Param year query int false "Exam year"
// @Param mode query string false "chapters or papers"
// @Param bucket query string false "Chapter or paper title"
// @Success 200 {object} dataPayload{data=[]model.Question}
// @Failure 400 {object} errorPayload
// @Router /questions [get]
func ListQuestions(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, ok := parseFilter(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_YEAR", "year must be an integer")
		}
		items, err := svc.Query(c.UserContext(), f)
		if err != nil {
			return writeAppError(c, err)
		}
		return writeData(c, fiber.StatusOK, items)
	}
}

// CreateQuestion godoc
// @Summary Insert a question
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param question body createQuestionRequest true "Question"
// @Success 201 {object} dataPayload{data=idResponse}
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /questions [post]
func CreateQuestion(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createQuestionRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			if errors.Is(err, errInvalidYear) {
				return writeError(c, fiber.StatusBadRequest, "INVALID_YEAR", "year must be an integer")
			}
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}

		id, err := svc.Insert(c.UserContext(), model.Question{
			Subject:       req.Subject,
			Year:          int(req.Year),
			Mode:          model.Mode(req.Mode),
			Bucket:        req.Bucket,
			Question:      req.Question,
			Solution:      req.Solution,
			SolutionImage: req.SolutionImage,
		}, bearer(c))
		if err != nil {
			return writeAppError(c, err)
		}
		return writeData(c, fiber.StatusCreated, idResponse{ID: id})
	}
}

// DeleteQuestion godoc
// @Summary Delete a question
// @Tags questions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Question id"
// @Success 200 {object} dataPayload{data=idResponse}
// @Failure 401 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /questions/{id} [delete]
func DeleteQuestion(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := svc.Delete(c.UserContext(), id, bearer(c)); err != nil {
			return writeAppError(c, err)
		}
		return writeData(c, fiber.StatusOK, idResponse{ID: id})
	}
}

// ListBuckets godoc
// @Summary Bucket names for navigation
// @Description Sorted bucket names under the given subject, year and mode.
// @Tags questions
// @Produce json
// @Param subject query string false "Subject"
// @Param year query int false "Exam year"
// @Param mode query string false "chapters or papers"
// @Success 200 {object} dataPayload{data=[]string}
// @Failure 400 {object} errorPayload
// @Router /buckets [get]
func ListBuckets(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, ok := parseFilter(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_YEAR", "year must be an integer")
		}
		f.Bucket = ""
		items, err := svc.Query(c.UserContext(), f)
		if err != nil {
			return writeAppError(c, err)
		}
		return writeData(c, fiber.StatusOK, buckets.ListBucketNames(buckets.GroupByBucket(items)))
	}
}

// UploadSolutionImage godoc
// @Summary Upload a solution image
// @Description imageData is base64, optionally as a data URL.
// @Tags assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param image body model.UploadRequest true "Image"
// @Success 201 {object} dataPayload{data=model.ImageAsset}
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /upload-solution-image [post]
func UploadSolutionImage(svc service.AssetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req model.UploadRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}
		asset, err := svc.Upload(c.UserContext(), req, bearer(c))
		if err != nil {
			return writeAppError(c, err)
		}
		return writeData(c, fiber.StatusCreated, asset)
	}
}

// Login godoc
// @Summary Operator login
// @Tags admin
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Credentials"
// @Success 200 {object} dataPayload{data=tokenResponse}
// @Failure 401 {object} errorPayload
// @Router /admin/login [post]
func Login(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}
		token, err := a.Login(req.Identity, req.Secret)
		if err != nil {
			return writeAppError(c, err)
		}
		return writeData(c, fiber.StatusOK, tokenResponse{Token: string(token)})
	}
}

// ServeAsset godoc
// @Summary Fetch a stored solution image
// @Tags assets
// @Produce octet-stream
// @Param path path string true "Stored path"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /assets/{path} [get]
func ServeAsset(store storage.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("*")
		if key == "" {
			return writeError(c, fiber.StatusNotFound, apperr.CodeNotFound, "asset not found")
		}
		rc, info, err := store.Get(c.UserContext(), key)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return writeError(c, fiber.StatusNotFound, apperr.CodeNotFound, "asset not found")
			}
			return writeAppError(c, err)
		}
		defer rc.Close()

		b, err := io.ReadAll(rc)
		if err != nil {
			return writeAppError(c, err)
		}
		ct := info.ContentType
		if ct == "" {
			ct = service.ContentType(key, "")
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
		return c.Status(fiber.StatusOK).Send(b)
	}
}
