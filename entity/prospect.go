package entity

type ProspectStatus uint32

const (
	ProspectStatusUnknown ProspectStatus = iota
	ProspectStatusNew
	ProspectStatusReviewing
	ProspectStatusQualified
	ProspectStatusContacted
	ProspectStatusResponded
	ProspectStatusConverted
	ProspectStatusLost
	ProspectStatusArchived
)

// SupportedProspectStatuses maps boundary status strings into the closed
// enum. Unrecognized values are a validation error, never stored.
var SupportedProspectStatuses = map[string]ProspectStatus{
	"new":       ProspectStatusNew,
	"reviewing": ProspectStatusReviewing,
	"qualified": ProspectStatusQualified,
	"contacted": ProspectStatusContacted,
	"responded": ProspectStatusResponded,
	"converted": ProspectStatusConverted,
	"lost":      ProspectStatusLost,
	"archived":  ProspectStatusArchived,
}

func (s ProspectStatus) String() string {
	for str, status := range SupportedProspectStatuses {
		if status == s {
			return str
		}
	}
	return "unknown"
}

type ScoreBand string

const (
	ScoreBandHot  ScoreBand = "hot"
	ScoreBandWarm ScoreBand = "warm"
	ScoreBandCold ScoreBand = "cold"
)

const (
	hotScoreFloor  = 80
	warmScoreFloor = 60
)

type Prospect struct {
	ID             *uint64        `json:"id,omitempty"`
	Name           *string        `json:"name,omitempty"`
	Company        *string        `json:"company,omitempty"`
	Email          *string        `json:"email,omitempty"`
	Phone          *string        `json:"phone,omitempty"`
	Address        *string        `json:"address,omitempty"`
	City           *string        `json:"city,omitempty"`
	State          *string        `json:"state,omitempty"`
	Zip            *string        `json:"zip,omitempty"`
	Website        *string        `json:"website,omitempty"`
	WebsiteQuality *string        `json:"website_quality,omitempty"`
	Category       *string        `json:"category,omitempty"`
	Source         *string        `json:"source,omitempty"`
	GoogleRating   *float64       `json:"google_rating,omitempty"`
	AnnualRevenue  *uint64        `json:"annual_revenue,omitempty"`
	EmployeeCount  *uint32        `json:"employee_count,omitempty"`
	LeadScore      *uint32        `json:"lead_score,omitempty"`
	Status         ProspectStatus `json:"status,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	IsArchived     *bool          `json:"is_archived,omitempty"`
	EmailSentAt    *uint64        `json:"email_sent_at,omitempty"`
	EmailOpenedAt  *uint64        `json:"email_opened_at,omitempty"`
	RepliedAt      *uint64        `json:"replied_at,omitempty"`
	UnsubscribedAt *uint64        `json:"unsubscribed_at,omitempty"`
	FollowUpAt     *uint64        `json:"follow_up_at,omitempty"`
	CreateTime     *uint64        `json:"create_time,omitempty"`
	UpdateTime     *uint64        `json:"update_time,omitempty"`
}

func (e *Prospect) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Prospect) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}

func (e *Prospect) GetCompany() string {
	if e != nil && e.Company != nil {
		return *e.Company
	}
	return ""
}

func (e *Prospect) GetEmail() string {
	if e != nil && e.Email != nil {
		return *e.Email
	}
	return ""
}

func (e *Prospect) GetPhone() string {
	if e != nil && e.Phone != nil {
		return *e.Phone
	}
	return ""
}

func (e *Prospect) GetAddress() string {
	if e != nil && e.Address != nil {
		return *e.Address
	}
	return ""
}

func (e *Prospect) GetCity() string {
	if e != nil && e.City != nil {
		return *e.City
	}
	return ""
}

func (e *Prospect) GetState() string {
	if e != nil && e.State != nil {
		return *e.State
	}
	return ""
}

func (e *Prospect) GetZip() string {
	if e != nil && e.Zip != nil {
		return *e.Zip
	}
	return ""
}

func (e *Prospect) GetWebsite() string {
	if e != nil && e.Website != nil {
		return *e.Website
	}
	return ""
}

func (e *Prospect) GetCategory() string {
	if e != nil && e.Category != nil {
		return *e.Category
	}
	return ""
}

func (e *Prospect) GetSource() string {
	if e != nil && e.Source != nil {
		return *e.Source
	}
	return ""
}

func (e *Prospect) GetGoogleRating() float64 {
	if e != nil && e.GoogleRating != nil {
		return *e.GoogleRating
	}
	return 0
}

func (e *Prospect) GetAnnualRevenue() uint64 {
	if e != nil && e.AnnualRevenue != nil {
		return *e.AnnualRevenue
	}
	return 0
}

func (e *Prospect) GetEmployeeCount() uint32 {
	if e != nil && e.EmployeeCount != nil {
		return *e.EmployeeCount
	}
	return 0
}

func (e *Prospect) GetLeadScore() uint32 {
	if e != nil && e.LeadScore != nil {
		return *e.LeadScore
	}
	return 0
}

func (e *Prospect) GetStatus() ProspectStatus {
	if e != nil {
		return e.Status
	}
	return ProspectStatusUnknown
}

func (e *Prospect) GetTags() []string {
	if e != nil && e.Tags != nil {
		return e.Tags
	}
	return nil
}

func (e *Prospect) GetIsArchived() bool {
	if e != nil && e.IsArchived != nil {
		return *e.IsArchived
	}
	return false
}

func (e *Prospect) GetEmailSentAt() uint64 {
	if e != nil && e.EmailSentAt != nil {
		return *e.EmailSentAt
	}
	return 0
}

func (e *Prospect) GetEmailOpenedAt() uint64 {
	if e != nil && e.EmailOpenedAt != nil {
		return *e.EmailOpenedAt
	}
	return 0
}

func (e *Prospect) GetRepliedAt() uint64 {
	if e != nil && e.RepliedAt != nil {
		return *e.RepliedAt
	}
	return 0
}

func (e *Prospect) GetUnsubscribedAt() uint64 {
	if e != nil && e.UnsubscribedAt != nil {
		return *e.UnsubscribedAt
	}
	return 0
}

func (e *Prospect) GetCreateTime() uint64 {
	if e != nil && e.CreateTime != nil {
		return *e.CreateTime
	}
	return 0
}

// ScoreBand buckets the lead score for engagement segmentation:
// hot >= 80, warm 60-79, cold < 60.
func (e *Prospect) ScoreBand() ScoreBand {
	score := e.GetLeadScore()
	switch {
	case score >= hotScoreFloor:
		return ScoreBandHot
	case score >= warmScoreFloor:
		return ScoreBandWarm
	default:
		return ScoreBandCold
	}
}
