package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"outreach/entity"
	"outreach/pkg/errutil"
	"outreach/pkg/goutil"
	"outreach/pkg/validator"
	"outreach/repo"
)

// exportHeader is the fixed column set of a prospect export. Order matters:
// downstream sheets are keyed by position.
var exportHeader = []string{
	"Name", "Company", "Email", "Phone", "Address", "City", "State", "ZIP",
	"Website", "Lead Score", "Status", "Category", "Source", "Google Rating",
	"Annual Revenue", "Employees", "Tags", "Created At",
}

type ExportHandler interface {
	ExportProspects(ctx context.Context, req *ExportProspectsRequest, res *ExportProspectsResponse) error
}

type exportHandler struct {
	prospectRepo repo.ProspectRepo
}

func NewExportHandler(prospectRepo repo.ProspectRepo) ExportHandler {
	return &exportHandler{
		prospectRepo: prospectRepo,
	}
}

type ExportProspectsRequest struct {
	Filter *ProspectFilter `json:"filter,omitempty"`
}

type ExportProspectsResponse struct {
	FileName *string `json:"file_name,omitempty"`
	Csv      *string `json:"csv,omitempty"`
	Count    *uint64 `json:"count,omitempty"`
}

var ExportProspectsValidator = validator.MustForm(map[string]validator.Validator{
	"filter": ProspectFilterValidator,
})

// ExportProspects renders the filtered set as CSV, best leads first. The
// output is deterministic for a given row set: fixed header, lead score
// descending with id ascending as tiebreak, tags joined by "; ".
func (h *exportHandler) ExportProspects(ctx context.Context, req *ExportProspectsRequest, res *ExportProspectsResponse) error {
	if err := ExportProspectsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	prospects, _, err := h.prospectRepo.GetMany(ctx, &repo.Filter{
		Conditions: req.Filter.ToConditions(),
		OrderBy:    "lead_score DESC, id ASC",
	})
	if err != nil {
		log.Ctx(ctx).Error().Msgf("export prospects failed: %v", err)
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, prospect := range prospects {
		if err := w.Write(toExportRow(prospect)); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	res.FileName = goutil.String(fmt.Sprintf("prospects_%s.csv", time.Now().UTC().Format("20060102")))
	res.Csv = goutil.String(buf.String())
	res.Count = goutil.Uint64(uint64(len(prospects)))

	return nil
}

func toExportRow(prospect *entity.Prospect) []string {
	var createdAt string
	if prospect.GetCreateTime() > 0 {
		createdAt = time.Unix(int64(prospect.GetCreateTime()), 0).UTC().Format("2006-01-02 15:04:05")
	}

	var rating string
	if prospect.GoogleRating != nil {
		rating = strconv.FormatFloat(prospect.GetGoogleRating(), 'f', 1, 64)
	}

	return []string{
		prospect.GetName(),
		prospect.GetCompany(),
		prospect.GetEmail(),
		prospect.GetPhone(),
		prospect.GetAddress(),
		prospect.GetCity(),
		prospect.GetState(),
		prospect.GetZip(),
		prospect.GetWebsite(),
		strconv.FormatUint(uint64(prospect.GetLeadScore()), 10),
		prospect.GetStatus().String(),
		prospect.GetCategory(),
		prospect.GetSource(),
		rating,
		strconv.FormatUint(prospect.GetAnnualRevenue(), 10),
		strconv.FormatUint(uint64(prospect.GetEmployeeCount()), 10),
		strings.Join(prospect.GetTags(), "; "),
		createdAt,
	}
}
