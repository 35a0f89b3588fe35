package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"outreach/pkg/goutil"
)

func TestScoreBand(t *testing.T) {
	tests := []struct {
		score uint32
		want  ScoreBand
	}{
		{score: 0, want: ScoreBandCold},
		{score: 59, want: ScoreBandCold},
		{score: 60, want: ScoreBandWarm},
		{score: 79, want: ScoreBandWarm},
		{score: 80, want: ScoreBandHot},
		{score: 100, want: ScoreBandHot},
	}

	for _, tt := range tests {
		prospect := &Prospect{LeadScore: goutil.Uint32(tt.score)}
		assert.Equal(t, tt.want, prospect.ScoreBand(), "score %d", tt.score)
	}

	// missing score is cold
	assert.Equal(t, ScoreBandCold, (&Prospect{}).ScoreBand())
}

func TestProspectStatusRoundTrip(t *testing.T) {
	for str, status := range SupportedProspectStatuses {
		assert.Equal(t, str, status.String())
	}
	assert.Equal(t, "unknown", ProspectStatusUnknown.String())
}
