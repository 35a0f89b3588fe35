package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach/config"
	"outreach/entity"
	"outreach/pkg/goutil"
	"outreach/repo"
)

type fakeSearchRepo struct {
	hits    []uint64
	indexed []*entity.Prospect
}

func (r *fakeSearchRepo) Index(_ context.Context, prospect *entity.Prospect) error {
	r.indexed = append(r.indexed, prospect)
	return nil
}

func (r *fakeSearchRepo) Search(_ context.Context, _ string, _ uint32) ([]uint64, error) {
	return r.hits, nil
}

func (r *fakeSearchRepo) Close(_ context.Context) error { return nil }

type prospectFixture struct {
	handler      ProspectHandler
	prospectRepo repo.ProspectRepo
	searchRepo   *fakeSearchRepo
}

func newProspectFixture(t *testing.T) *prospectFixture {
	baseRepo := newTestBaseRepo(t)

	f := &prospectFixture{
		prospectRepo: repo.NewProspectRepoWithBase(baseRepo),
		searchRepo:   new(fakeSearchRepo),
	}
	f.handler = NewProspectHandler(config.NewConfig(), f.prospectRepo, f.searchRepo)
	return f
}

func TestCreateProspectDefaults(t *testing.T) {
	f := newProspectFixture(t)
	ctx := context.Background()

	res := new(CreateProspectResponse)
	err := f.handler.CreateProspect(ctx, &CreateProspectRequest{
		Name:  goutil.String("Joe's Plumbing"),
		Email: goutil.String("joe@example.com"),
	}, res)
	require.NoError(t, err)
	require.NotNil(t, res.Prospect)
	assert.NotZero(t, res.Prospect.GetID())

	prospect, err := f.prospectRepo.GetByID(ctx, res.Prospect.GetID())
	require.NoError(t, err)
	assert.Equal(t, entity.ProspectStatusNew, prospect.GetStatus())
	assert.False(t, prospect.GetIsArchived())
	assert.NotZero(t, prospect.GetCreateTime())
	assert.Empty(t, prospect.GetTags())

	// new rows go straight into the suggestion index
	require.Len(t, f.searchRepo.indexed, 1)
	assert.Equal(t, res.Prospect.GetID(), f.searchRepo.indexed[0].GetID())
}

func TestCreateProspectInvalidStatus(t *testing.T) {
	f := newProspectFixture(t)

	err := f.handler.CreateProspect(context.Background(), &CreateProspectRequest{
		Name:   goutil.String("Joe's Plumbing"),
		Status: goutil.String("bogus"),
	}, new(CreateProspectResponse))
	assert.Error(t, err)
}

func TestGetProspectsKeyword(t *testing.T) {
	f := newProspectFixture(t)
	ctx := context.Background()

	want := seedProspect(t, f.prospectRepo, &entity.Prospect{
		Name:    goutil.String("Austin HVAC Pros"),
		Company: goutil.String("HVAC Pros LLC"),
		Email:   goutil.String("hvac@example.com"),
	})
	seedProspect(t, f.prospectRepo, &entity.Prospect{
		Name:  goutil.String("Dallas Roofing"),
		Email: goutil.String("roof@example.com"),
	})

	res := new(GetProspectsResponse)
	err := f.handler.GetProspects(ctx, &GetProspectsRequest{
		Filter: &ProspectFilter{Keyword: goutil.String("hvac")},
	}, res)
	require.NoError(t, err)
	require.Len(t, res.Prospects, 1)
	assert.Equal(t, want, res.Prospects[0].GetID())
}

func TestGetProspectsSort(t *testing.T) {
	f := newProspectFixture(t)
	ctx := context.Background()

	low := seedProspect(t, f.prospectRepo, &entity.Prospect{
		Email:     goutil.String("low@example.com"),
		LeadScore: goutil.Uint32(20),
	})
	high := seedProspect(t, f.prospectRepo, &entity.Prospect{
		Email:     goutil.String("high@example.com"),
		LeadScore: goutil.Uint32(90),
	})

	res := new(GetProspectsResponse)
	err := f.handler.GetProspects(ctx, &GetProspectsRequest{
		Sort: &Sort{Field: goutil.String("lead_score"), Desc: goutil.Bool(true)},
	}, res)
	require.NoError(t, err)
	require.Len(t, res.Prospects, 2)
	assert.Equal(t, high, res.Prospects[0].GetID())
	assert.Equal(t, low, res.Prospects[1].GetID())
}

func TestGetProspectsRejectsUnknownSortField(t *testing.T) {
	f := newProspectFixture(t)

	err := f.handler.GetProspects(context.Background(), &GetProspectsRequest{
		Sort: &Sort{Field: goutil.String("1; DROP TABLE prospect_tab")},
	}, new(GetProspectsResponse))
	assert.Error(t, err)
}

func TestCountProspects(t *testing.T) {
	f := newProspectFixture(t)
	ctx := context.Background()

	seedProspect(t, f.prospectRepo, &entity.Prospect{
		Email:  goutil.String("a@example.com"),
		Status: entity.ProspectStatusContacted,
	})
	seedProspect(t, f.prospectRepo, &entity.Prospect{
		Email:  goutil.String("b@example.com"),
		Status: entity.ProspectStatusContacted,
	})
	seedProspect(t, f.prospectRepo, &entity.Prospect{
		Email: goutil.String("c@example.com"),
	})

	res := new(CountProspectsResponse)
	err := f.handler.CountProspects(ctx, &CountProspectsRequest{
		Filter: &ProspectFilter{Statuses: []string{"contacted"}},
	}, res)
	require.NoError(t, err)
	require.NotNil(t, res.Count)
	assert.Equal(t, uint64(2), *res.Count)
}

func TestGetProspectNotFound(t *testing.T) {
	f := newProspectFixture(t)

	err := f.handler.GetProspect(context.Background(), &GetProspectRequest{
		ProspectID: goutil.Uint64(404),
	}, new(GetProspectResponse))
	assert.Error(t, err)
}

func TestUpdateProspectKeepsTags(t *testing.T) {
	f := newProspectFixture(t)
	ctx := context.Background()

	id := seedProspect(t, f.prospectRepo, &entity.Prospect{
		Tags: []string{"hvac", "priority"},
	})

	res := new(UpdateProspectResponse)
	err := f.handler.UpdateProspect(ctx, &UpdateProspectRequest{
		ProspectID: goutil.Uint64(id),
		Name:       goutil.String("Renamed"),
		Status:     goutil.String("qualified"),
	}, res)
	require.NoError(t, err)

	prospect, err := f.prospectRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", prospect.GetName())
	assert.Equal(t, entity.ProspectStatusQualified, prospect.GetStatus())

	// a partial update never touches fields it does not carry
	assert.ElementsMatch(t, []string{"hvac", "priority"}, prospect.GetTags())
	assert.Equal(t, "joe@example.com", prospect.GetEmail())
}

func TestSearchProspectsHydratesInHitOrder(t *testing.T) {
	f := newProspectFixture(t)
	ctx := context.Background()

	first := seedProspect(t, f.prospectRepo, &entity.Prospect{
		Email: goutil.String("first@example.com"),
	})
	second := seedProspect(t, f.prospectRepo, &entity.Prospect{
		Email: goutil.String("second@example.com"),
	})

	// relevance order differs from insertion order; a stale hit is dropped
	f.searchRepo.hits = []uint64{second, first, 999}

	res := new(SearchProspectsResponse)
	err := f.handler.SearchProspects(ctx, &SearchProspectsRequest{
		Keyword: goutil.String("example"),
	}, res)
	require.NoError(t, err)
	require.Len(t, res.Prospects, 2)
	assert.Equal(t, second, res.Prospects[0].GetID())
	assert.Equal(t, first, res.Prospects[1].GetID())
}
