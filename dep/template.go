package dep

import (
	"context"
	"fmt"
	"strings"

	"outreach/entity"
)

// RenderedEmail is the subject/body pair produced for one prospect.
type RenderedEmail struct {
	Subject     string
	HtmlContent string
}

// TemplateService renders a step's template against a prospect. Placeholders
// of the form {{field}} are substituted from the prospect row; unknown
// placeholders are left untouched so a bad template is visible, not silent.
type TemplateService interface {
	Render(ctx context.Context, templateID uint64, prospect *entity.Prospect) (*RenderedEmail, error)
}

type Template struct {
	ID      uint64
	Subject string
	Html    string
}

type templateService struct {
	templates map[uint64]*Template
}

var defaultTemplate = &Template{
	Subject: "Quick question for {{company}}",
	Html:    "<p>Hi {{name}},</p><p>I came across {{company}} in {{city}} and wanted to reach out.</p>",
}

func NewTemplateService(_ context.Context, templates []*Template) (TemplateService, error) {
	byID := make(map[uint64]*Template, len(templates))
	for _, t := range templates {
		if _, ok := byID[t.ID]; ok {
			return nil, fmt.Errorf("duplicate template id: %d", t.ID)
		}
		byID[t.ID] = t
	}
	return &templateService{templates: byID}, nil
}

func (s *templateService) Render(_ context.Context, templateID uint64, prospect *entity.Prospect) (*RenderedEmail, error) {
	t, ok := s.templates[templateID]
	if !ok {
		t = defaultTemplate
	}

	replacer := strings.NewReplacer(
		"{{name}}", prospect.GetName(),
		"{{company}}", prospect.GetCompany(),
		"{{email}}", prospect.GetEmail(),
		"{{city}}", prospect.GetCity(),
		"{{state}}", prospect.GetState(),
		"{{website}}", prospect.GetWebsite(),
		"{{category}}", prospect.GetCategory(),
	)

	return &RenderedEmail{
		Subject:     replacer.Replace(t.Subject),
		HtmlContent: replacer.Replace(t.Html),
	}, nil
}
