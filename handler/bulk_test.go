package handler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach/config"
	"outreach/entity"
	"outreach/pkg/goutil"
	"outreach/repo"
)

func newBulkFixture(t *testing.T) (BulkHandler, repo.ProspectRepo, *config.Config) {
	baseRepo := newTestBaseRepo(t)
	prospectRepo := repo.NewProspectRepoWithBase(baseRepo)
	cfg := config.NewConfig()
	return NewBulkHandler(cfg, prospectRepo), prospectRepo, cfg
}

func TestBulkDeleteOverCapRejectsWholeBatch(t *testing.T) {
	h, prospectRepo, cfg := newBulkFixture(t)
	cfg.Outreach.BulkDeleteCap = 2
	ctx := context.Background()

	ids := make([]uint64, 0, 3)
	for i := 0; i < 3; i++ {
		ids = append(ids, seedProspect(t, prospectRepo, &entity.Prospect{
			Email: goutil.String(fmt.Sprintf("p%d@example.com", i)),
		}))
	}

	res := new(BulkUpdateProspectsResponse)
	err := h.BulkUpdateProspects(ctx, &BulkUpdateProspectsRequest{
		Action:      goutil.String("delete"),
		ProspectIDs: ids,
	}, res)
	require.NoError(t, err)

	// nothing attempted, so nothing processed and nothing failed per-item
	assert.False(t, res.Result.GetSuccess())
	assert.Equal(t, uint32(0), res.Result.GetProcessed())
	assert.Equal(t, uint32(0), res.Result.GetFailed())
	require.Len(t, res.Result.Errors, 1)
	assert.Contains(t, res.Result.Errors[0], "over cap")

	// nothing was deleted
	for _, id := range ids {
		_, err := prospectRepo.GetByID(ctx, id)
		assert.NoError(t, err)
	}
}

func TestBulkDeleteUnderCap(t *testing.T) {
	h, prospectRepo, _ := newBulkFixture(t)
	ctx := context.Background()

	ids := []uint64{
		seedProspect(t, prospectRepo, &entity.Prospect{Email: goutil.String("a@example.com")}),
		seedProspect(t, prospectRepo, &entity.Prospect{Email: goutil.String("b@example.com")}),
	}
	kept := seedProspect(t, prospectRepo, &entity.Prospect{Email: goutil.String("c@example.com")})

	res := new(BulkUpdateProspectsResponse)
	err := h.BulkUpdateProspects(ctx, &BulkUpdateProspectsRequest{
		Action:      goutil.String("delete"),
		ProspectIDs: ids,
	}, res)
	require.NoError(t, err)

	assert.True(t, res.Result.GetSuccess())
	assert.Equal(t, uint32(2), res.Result.GetProcessed())

	for _, id := range ids {
		_, err := prospectRepo.GetByID(ctx, id)
		assert.ErrorIs(t, err, repo.ErrProspectNotFound)
	}
	_, err = prospectRepo.GetByID(ctx, kept)
	assert.NoError(t, err)
}

func TestBulkUpdateIsolatesFailures(t *testing.T) {
	h, prospectRepo, _ := newBulkFixture(t)
	ctx := context.Background()

	good := seedProspect(t, prospectRepo, &entity.Prospect{Email: goutil.String("a@example.com")})
	missing := good + 100

	res := new(BulkUpdateProspectsResponse)
	err := h.BulkUpdateProspects(ctx, &BulkUpdateProspectsRequest{
		Action:      goutil.String("set_status"),
		ProspectIDs: []uint64{good, missing},
		Status:      goutil.String("qualified"),
	}, res)
	require.NoError(t, err)

	assert.False(t, res.Result.GetSuccess())
	assert.Equal(t, uint32(1), res.Result.GetProcessed())
	assert.Equal(t, uint32(1), res.Result.GetFailed())
	require.Len(t, res.Result.Errors, 1)
	assert.Contains(t, res.Result.Errors[0], fmt.Sprintf("prospect %d", missing))

	prospect, err := prospectRepo.GetByID(ctx, good)
	require.NoError(t, err)
	assert.Equal(t, entity.ProspectStatusQualified, prospect.GetStatus())
}

func TestBulkArchive(t *testing.T) {
	h, prospectRepo, _ := newBulkFixture(t)
	ctx := context.Background()

	id := seedProspect(t, prospectRepo, &entity.Prospect{Email: goutil.String("a@example.com")})

	res := new(BulkUpdateProspectsResponse)
	err := h.BulkUpdateProspects(ctx, &BulkUpdateProspectsRequest{
		Action:      goutil.String("archive"),
		ProspectIDs: []uint64{id},
	}, res)
	require.NoError(t, err)
	assert.True(t, res.Result.GetSuccess())

	prospect, err := prospectRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, prospect.GetIsArchived())
	assert.Equal(t, entity.ProspectStatusArchived, prospect.GetStatus())
}

func TestBulkTags(t *testing.T) {
	h, prospectRepo, _ := newBulkFixture(t)
	ctx := context.Background()

	id := seedProspect(t, prospectRepo, &entity.Prospect{
		Email: goutil.String("a@example.com"),
		Tags:  []string{"hvac", "priority"},
	})

	res := new(BulkUpdateProspectsResponse)
	err := h.BulkUpdateProspects(ctx, &BulkUpdateProspectsRequest{
		Action:      goutil.String("add_tags"),
		ProspectIDs: []uint64{id},
		Tags:        []string{"priority", "follow-up"},
	}, res)
	require.NoError(t, err)
	assert.True(t, res.Result.GetSuccess())

	prospect, err := prospectRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hvac", "priority", "follow-up"}, prospect.GetTags())

	res = new(BulkUpdateProspectsResponse)
	err = h.BulkUpdateProspects(ctx, &BulkUpdateProspectsRequest{
		Action:      goutil.String("remove_tags"),
		ProspectIDs: []uint64{id},
		Tags:        []string{"priority"},
	}, res)
	require.NoError(t, err)
	assert.True(t, res.Result.GetSuccess())

	prospect, err = prospectRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hvac", "follow-up"}, prospect.GetTags())
}

func TestBulkUpdateMissingActionParam(t *testing.T) {
	h, prospectRepo, _ := newBulkFixture(t)
	ctx := context.Background()

	id := seedProspect(t, prospectRepo, &entity.Prospect{Email: goutil.String("a@example.com")})

	res := new(BulkUpdateProspectsResponse)
	err := h.BulkUpdateProspects(ctx, &BulkUpdateProspectsRequest{
		Action:      goutil.String("set_status"),
		ProspectIDs: []uint64{id},
	}, res)
	assert.Error(t, err)
}
