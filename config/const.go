package config

const (
	PathHealthCheck = "/"

	PathGetProspects    = "/get_prospects"
	PathCountProspects  = "/count_prospects"
	PathGetProspect     = "/get_prospect"
	PathCreateProspect  = "/create_prospect"
	PathUpdateProspect  = "/update_prospect"
	PathSearchProspects = "/search_prospects"
	PathBulkUpdate      = "/bulk_update_prospects"
	PathExportProspects = "/export_prospects"

	PathCreateCampaign     = "/create_campaign"
	PathGetCampaign        = "/get_campaign"
	PathGetCampaigns       = "/get_campaigns"
	PathActivateCampaign   = "/activate_campaign"
	PathDeactivateCampaign = "/deactivate_campaign"
	PathAppendStep         = "/append_campaign_step"
	PathDeleteCampaign     = "/delete_campaign"

	PathGetEnrollments   = "/get_enrollments"
	PathPauseEnrollment  = "/pause_enrollment"
	PathResumeEnrollment = "/resume_enrollment"

	PathOnEngagementEvent = "/on_engagement_event"

	PathGetCampaignMetrics     = "/get_campaign_metrics"
	PathGetEngagementBreakdown = "/get_engagement_breakdown"
)

const (
	DefaultPort   = 9090
	LogLevelDebug = "DEBUG"

	DefaultBulkDeleteCap      = 500
	DefaultBulkConcurrency    = 8
	DefaultAdvanceConcurrency = 10
	DefaultSendTimeoutSeconds = 10
)

var (
	EmptyJson    = []byte("{}")
	EmptyJsonArr = []byte("[]")
)
