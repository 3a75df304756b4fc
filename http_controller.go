package actions

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-auth-actions/views"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// PageRenderer writes a static page response
type PageRenderer func(ctx router.Context, page *Page, data map[string]any) error

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// Debug dumps request payloads through the logger
	Debug bool

	// DefaultSearchAttribute is used by search-by-attr when attr is missing (default: "merchant_id")
	DefaultSearchAttribute string

	// SessionCookie holds the encoded compound id of the browser session (default: "AUTH_SESSION_ID")
	SessionCookie string

	// SessionLocator overrides how the browser session is read from the request
	SessionLocator func(ctx router.Context) string

	// PageRenderer overrides how static pages are written
	PageRenderer PageRenderer

	// AdminMiddleware guards the admin routes
	AdminMiddleware []router.MiddlewareFunc
}

// HTTPController exposes dispatch, verification and search over go-router.
type HTTPController struct {
	dispatcher *ActionDispatcher
	processor  *ActionTokenProcessor
	subjects   SubjectRepository
	config     HTTPConfig
	logger     Logger
}

// NewHTTPController creates the controller. The processor may be nil when
// only the admin routes are served.
func NewHTTPController(dispatcher *ActionDispatcher, processor *ActionTokenProcessor, subjects SubjectRepository, cfg Config, hc HTTPConfig, logger Logger) *HTTPController {
	if hc.DefaultSearchAttribute == "" {
		hc.DefaultSearchAttribute = "merchant_id"
	}
	if hc.SessionCookie == "" {
		hc.SessionCookie = "AUTH_SESSION_ID"
	}
	if hc.SessionLocator == nil {
		cookie := hc.SessionCookie
		hc.SessionLocator = func(ctx router.Context) string {
			return ctx.Cookies(cookie)
		}
	}
	if hc.PageRenderer == nil {
		hc.PageRenderer = htmlPageRenderer(views.NewRenderer(), cfg.GetRealm())
	}

	return &HTTPController{
		dispatcher: dispatcher,
		processor:  processor,
		subjects:   subjects,
		config:     hc,
		logger:     normalizeLogger(logger),
	}
}

// RegisterRoutes registers the action routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	mw := c.config.AdminMiddleware
	group.Put("/send-verify-email/users/:id", c.SendVerifyEmail, mw...)
	group.Put("/reset-password-email/users/:id", c.SendResetPasswordEmail, mw...)
	group.Get("/users/search-by-attr", c.SearchByAttribute, mw...)
	if c.processor != nil {
		group.Get("/login-actions/action-token", c.ActionToken)
	}
}

// SendVerifyEmail emails a verify email link to the user
func (c *HTTPController) SendVerifyEmail(ctx router.Context) error {
	return c.dispatch(ctx, ActionVerifyEmail)
}

// SendResetPasswordEmail emails a reset password link to the user
func (c *HTTPController) SendResetPasswordEmail(ctx router.Context) error {
	return c.dispatch(ctx, ActionResetPassword)
}

func (c *HTTPController) dispatch(ctx router.Context, action DispatchAction) error {
	req := DispatchRequest{
		SubjectID:   ctx.Param("id"),
		RedirectURI: ctx.Query("redirect_uri"),
		ClientID:    ctx.Query("client_id"),
		Action:      action,
		Actor:       requestActor(ctx),
	}

	if c.config.Debug {
		c.logger.Debug("dispatch request:\n%s", print.MaybePrettyJSON(req))
	}

	if err := c.dispatcher.Dispatch(ctx.Context(), req); err != nil {
		return c.errorJSON(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func requestActor(ctx router.Context) ActorRef {
	if actor, ok := ctx.Locals(ActorLocalsKey).(ActorRef); ok {
		return actor
	}
	return ActorRef{Type: "admin"}
}

// SearchQuery is the search-by-attr query
type SearchQuery struct {
	Attribute string `json:"attr"`
	Value     string `json:"value"`
}

// Validate will run validation rules
func (q SearchQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Attribute, validation.Required),
		validation.Field(&q.Value, validation.Required),
	)
}

// UserDTO is the public projection of a subject
type UserDTO struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	MerchantID string `json:"merchant_id,omitempty"`
}

// NewUserDTO projects a subject
func NewUserDTO(s *Subject) UserDTO {
	return UserDTO{
		ID:         s.ID,
		Username:   s.Username,
		FirstName:  s.FirstName,
		LastName:   s.LastName,
		Email:      s.Email,
		MerchantID: s.FirstAttribute("merchant_id"),
	}
}

// SearchByAttribute lists users whose attribute matches the value
func (c *HTTPController) SearchByAttribute(ctx router.Context) error {
	q := SearchQuery{
		Attribute: ctx.Query("attr", c.config.DefaultSearchAttribute),
		Value:     ctx.Query("value"),
	}

	if err := q.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error":     err.Error(),
			"text_code": "INVALID_QUERY",
		})
	}

	subjects, err := c.subjects.SearchSubjects(ctx.Context(), q.Attribute, q.Value)
	if err != nil {
		c.logger.Error("search by %s failed: %v", q.Attribute, err)
		return c.errorJSON(ctx, err)
	}

	users := make([]UserDTO, 0, len(subjects))
	for _, s := range subjects {
		if s != nil {
			users = append(users, NewUserDTO(s))
		}
	}

	return ctx.JSON(http.StatusOK, users)
}

// ActionToken processes a click on an emailed link
func (c *HTTPController) ActionToken(ctx router.Context) error {
	outcome, err := c.processor.Process(ctx.Context(), ProcessRequest{
		Key:            ctx.Query("key"),
		BrowserSession: c.config.SessionLocator(ctx),
	})
	if err != nil {
		if IsVerificationError(err) || IsValidationError(err) {
			c.logger.Info("action link rejected: %v", err)
			return c.config.PageRenderer(ctx, &Page{
				Name:    PageStaleLink,
				Status:  http.StatusBadRequest,
				Message: "The link you followed has expired or is no longer valid.",
			}, map[string]any{"text_code": textCode(err)})
		}
		return c.errorJSON(ctx, err)
	}

	if outcome.Kind == OutcomeRedirect {
		return ctx.Redirect(outcome.Location, http.StatusFound)
	}

	return c.config.PageRenderer(ctx, outcome.Page, nil)
}

func (c *HTTPController) errorJSON(ctx router.Context, err error) error {
	return ctx.JSON(StatusCode(err), map[string]string{
		"error":     errorMessage(err),
		"text_code": textCode(err),
	})
}

func htmlPageRenderer(renderer *views.Renderer, realm string) PageRenderer {
	return func(ctx router.Context, page *Page, data map[string]any) error {
		if data == nil {
			data = map[string]any{}
		}
		data["message"] = page.Message
		data["realm"] = realm

		html, err := renderer.Render(page.Name, data)
		if err != nil {
			return err
		}

		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Status(page.Status).SendString(html)
	}
}

func errorMessage(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Message
	}
	return err.Error()
}

func textCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr.TextCode
	}
	return strings.ReplaceAll(strings.ToUpper(http.StatusText(StatusCode(err))), " ", "_")
}
