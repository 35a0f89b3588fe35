package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"outreach/entity"
	"outreach/pkg/goutil"
)

func newCampaignTestRepo(t *testing.T) CampaignRepo {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Campaign{}, &CampaignStep{}))

	return NewCampaignRepoWithBase(context.Background(), NewBaseRepoWithDB(db))
}

func TestGetByIDReturnsDetachedCampaign(t *testing.T) {
	campaignRepo := newCampaignTestRepo(t)
	ctx := context.Background()

	id, err := campaignRepo.Create(ctx, &entity.Campaign{
		Name:     goutil.String("drip"),
		IsActive: goutil.Bool(true),
		Steps: []*entity.Step{
			{StepIndex: goutil.Uint32(0), TemplateID: goutil.Uint64(1)},
		},
	})
	require.NoError(t, err)

	first, err := campaignRepo.GetByID(ctx, id)
	require.NoError(t, err)

	// writes to what a caller got back must not leak into the cache
	first.IsActive = goutil.Bool(false)
	first.Steps = nil

	second, err := campaignRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, second.GetIsActive())
	assert.Len(t, second.GetSteps(), 1)
}
