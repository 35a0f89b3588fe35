package handler

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach/entity"
	"outreach/pkg/goutil"
	"outreach/repo"
)

func TestExportProspects(t *testing.T) {
	baseRepo := newTestBaseRepo(t)
	prospectRepo := repo.NewProspectRepoWithBase(baseRepo)
	h := NewExportHandler(prospectRepo)
	ctx := context.Background()

	seedProspect(t, prospectRepo, &entity.Prospect{
		Name:         goutil.String("Low Score"),
		Email:        goutil.String("low@example.com"),
		LeadScore:    goutil.Uint32(20),
		GoogleRating: goutil.Float64(4.5),
		Tags:         []string{"hvac", "priority"},
		CreateTime:   goutil.Uint64(1700000000),
	})
	seedProspect(t, prospectRepo, &entity.Prospect{
		Name:      goutil.String("High Score"),
		Email:     goutil.String("high@example.com"),
		LeadScore: goutil.Uint32(90),
	})

	res := new(ExportProspectsResponse)
	require.NoError(t, h.ExportProspects(ctx, &ExportProspectsRequest{}, res))

	require.NotNil(t, res.Count)
	assert.Equal(t, uint64(2), *res.Count)
	require.NotNil(t, res.Csv)

	rows, err := csv.NewReader(strings.NewReader(*res.Csv)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"Name", "Company", "Email", "Phone", "Address", "City", "State", "ZIP",
		"Website", "Lead Score", "Status", "Category", "Source", "Google Rating",
		"Annual Revenue", "Employees", "Tags", "Created At",
	}, rows[0])

	// best leads first
	assert.Equal(t, "High Score", rows[1][0])
	assert.Equal(t, "90", rows[1][9])

	low := rows[2]
	assert.Equal(t, "Low Score", low[0])
	assert.Equal(t, "4.5", low[13])
	assert.Equal(t, "hvac; priority", low[16])
	assert.Equal(t, "2023-11-14 22:13:20", low[17])

	require.NotNil(t, res.FileName)
	assert.True(t, strings.HasPrefix(*res.FileName, "prospects_"))
	assert.True(t, strings.HasSuffix(*res.FileName, ".csv"))
}

func TestExportProspectsRespectsFilter(t *testing.T) {
	baseRepo := newTestBaseRepo(t)
	prospectRepo := repo.NewProspectRepoWithBase(baseRepo)
	h := NewExportHandler(prospectRepo)
	ctx := context.Background()

	seedProspect(t, prospectRepo, &entity.Prospect{
		Name:  goutil.String("Austin Biz"),
		Email: goutil.String("a@example.com"),
		City:  goutil.String("austin"),
	})
	seedProspect(t, prospectRepo, &entity.Prospect{
		Name:  goutil.String("Dallas Biz"),
		Email: goutil.String("d@example.com"),
		City:  goutil.String("dallas"),
	})

	res := new(ExportProspectsResponse)
	require.NoError(t, h.ExportProspects(ctx, &ExportProspectsRequest{
		Filter: &ProspectFilter{Cities: []string{"austin"}},
	}, res))

	rows, err := csv.NewReader(strings.NewReader(*res.Csv)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Austin Biz", rows[1][0])
}
