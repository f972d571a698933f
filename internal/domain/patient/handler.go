package patient

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const aboutMessage = "Fully functional Patient Management API using FastAPI to manage patient records."

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/", h.Home)
	g.GET("/about", h.About)
	g.GET("/view", h.View)
	g.GET("/sort", h.Sort)
	g.GET("/patient/:id", h.GetPatient)
	g.POST("/create", h.CreatePatient)
	g.PUT("/update/:id", h.UpdatePatient)
	g.DELETE("/delete/:id", h.DeletePatient)
}

type messageResponse struct {
	Message string `json:"message"`
}

// ErrorDetail is one entry of a 422 response body.
type ErrorDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func (h *Handler) Home(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "Patient Management API"})
}

func (h *Handler) About(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: aboutMessage})
}

func (h *Handler) View(c echo.Context) error {
	coll, err := h.svc.List(c.Request().Context())
	if err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusOK, coll)
}

func (h *Handler) Sort(c echo.Context) error {
	if _, ok := c.QueryParams()["sort_by"]; !ok {
		return validationHTTPError("query", &ValidationError{Fields: []FieldError{
			{Field: "sort_by", Constraint: "missing", Message: "Field required"},
		}})
	}
	order := c.QueryParam("order")
	if _, ok := c.QueryParams()["order"]; !ok {
		order = string(Ascending)
	}
	ps, err := h.svc.Sort(c.Request().Context(), c.QueryParam("sort_by"), order)
	if err != nil {
		return httpError(err, "query")
	}
	return c.JSON(http.StatusOK, ps)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusOK, p.Record)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	draft, err := DecodeDraft(body)
	if err != nil {
		return httpError(err, "body")
	}
	p, err := draft.Patient()
	if err != nil {
		return httpError(err, "body")
	}
	if err := h.svc.Create(c.Request().Context(), p.ID, p.Fields()); err != nil {
		return httpError(err, "body")
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: "Patient created successfully"})
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	patch, err := DecodePatch(body)
	if err != nil {
		return httpError(err, "body")
	}
	if err := h.svc.Update(c.Request().Context(), c.Param("id"), patch); err != nil {
		return httpError(err, "body")
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Patient updated successfully"})
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Patient deleted successfully"})
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	return body, nil
}

// httpError maps a service error onto the status and detail the API has
// always returned. in names where validated input came from.
func httpError(err error, in string) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return validationHTTPError(in, verr)
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusBadRequest, "Patient ID already exists")
	case errors.Is(err, ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, ArgumentMessage(err))
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error").SetInternal(err)
	}
}

func validationHTTPError(in string, verr *ValidationError) error {
	if in == "" {
		in = "body"
	}
	details := make([]ErrorDetail, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		loc := []string{in, f.Field}
		if f.Field == "body" {
			loc = []string{"body"}
		}
		details = append(details, ErrorDetail{Loc: loc, Msg: f.Message, Type: f.Constraint})
	}
	return echo.NewHTTPError(http.StatusUnprocessableEntity, details).SetInternal(verr)
}
