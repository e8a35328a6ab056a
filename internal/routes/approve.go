package routes

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"

	"dumpster-booking/internal/booking"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var pages = []string{"approve", "error"}

// Renderer builds the HTML pages served to operators. Every page is wrapped in
// the shared base layout.
func Renderer() (multitemplate.Render, error) {
	base, err := templateFS.ReadFile("templates/base.html.tmpl")
	if err != nil {
		return nil, err
	}

	r := multitemplate.New()
	for _, name := range pages {
		page, err := templateFS.ReadFile("templates/" + name + ".html.tmpl")
		if err != nil {
			return nil, err
		}
		r.AddFromStringsFuncs(name, template.FuncMap{}, `{{template "base" .}}`, string(base), string(page))
	}
	return r, nil
}

type pageText struct {
	Title   string
	Message string
}

var outcomePages = map[booking.OutcomeStatus]pageText{
	booking.OutcomeApproved: {"Approved", "The booking has been confirmed and the customer was notified."},
	booking.OutcomeDeclined: {"Declined", "The booking request was declined and the customer was notified."},
	booking.OutcomeInvalid:  {"Link Invalid or Expired", "This link is invalid or has expired. Please request a new link."},
}

// Repeat clicks change nothing and send nothing.
var unchangedPages = map[booking.OutcomeStatus]pageText{
	booking.OutcomeApproved: {"Approved", "This booking was already confirmed. Nothing was changed."},
	booking.OutcomeDeclined: {"Declined", "This booking request was already declined. Nothing was changed."},
}

var unnotifiedPages = map[booking.OutcomeStatus]pageText{
	booking.OutcomeApproved: {"Approved", "The booking has been confirmed, but the customer email could not be sent. Please contact the customer directly."},
	booking.OutcomeDeclined: {"Declined", "The booking request was declined, but the customer email could not be sent. Please contact the customer directly."},
}

var unknownOutcome = pageText{"Something went wrong", "Please try again, or contact support if the issue persists."}

// Values of the result query parameter.
const (
	resultUnchanged  = "unchanged"
	resultUnnotified = "unnotified"
)

func outcomePage(status booking.OutcomeStatus, result string) pageText {
	texts := outcomePages
	switch result {
	case resultUnchanged:
		texts = unchangedPages
	case resultUnnotified:
		texts = unnotifiedPages
	}
	if text, ok := texts[status]; ok {
		return text
	}
	if text, ok := outcomePages[status]; ok {
		return text
	}
	return unknownOutcome
}

// approve applies an emailed approve or decline link, then sends the browser to
// the outcome page so a refresh does not repeat the action.
func (h bookingHandlers) approve(c *gin.Context) {
	out := h.Transitions.Handle(c.Request.Context(), c.Query("token"), c.Query("action"))

	q := url.Values{}
	q.Set("status", string(out.Status))
	if out.Status == booking.OutcomeApproved || out.Status == booking.OutcomeDeclined {
		switch {
		case !out.Changed:
			q.Set("result", resultUnchanged)
		case !out.Notification.Sent:
			q.Set("result", resultUnnotified)
		}
	}
	for k, v := range map[string]string{"name": out.Name, "size": out.Size, "range": out.Range} {
		if v != "" {
			q.Set(k, v)
		}
	}
	c.Redirect(http.StatusFound, "/approve?"+q.Encode())
}

// ApprovePage renders the result of an approval link.
func ApprovePage(r *gin.RouterGroup) {
	r.GET("/approve", func(c *gin.Context) {
		text := outcomePage(booking.OutcomeStatus(c.Query("status")), c.Query("result"))
		c.HTML(http.StatusOK, "approve", gin.H{
			"Title":   text.Title,
			"Message": text.Message,
			"Name":    c.Query("name"),
			"Size":    c.Query("size"),
			"Range":   c.Query("range"),
			"SiteURL": c.GetString(SiteURLKey),
		})
	})
}
