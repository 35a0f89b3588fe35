package handler

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"outreach/entity"
	"outreach/pkg/goutil"
	"outreach/repo"
)

func newTestBaseRepo(t *testing.T) repo.BaseRepo {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&repo.Prospect{},
		&repo.Campaign{},
		&repo.CampaignStep{},
		&repo.Enrollment{},
		&repo.StepExecution{},
		&repo.EngagementLog{},
	))

	return repo.NewBaseRepoWithDB(db)
}

func seedProspect(t *testing.T, prospectRepo repo.ProspectRepo, prospect *entity.Prospect) uint64 {
	t.Helper()

	if prospect.Name == nil {
		prospect.Name = goutil.String("Joe's Plumbing")
	}
	if prospect.Email == nil {
		prospect.Email = goutil.String("joe@example.com")
	}
	if prospect.Status == entity.ProspectStatusUnknown {
		prospect.Status = entity.ProspectStatusNew
	}
	if prospect.IsArchived == nil {
		prospect.IsArchived = goutil.Bool(false)
	}

	id, err := prospectRepo.Create(context.Background(), prospect)
	require.NoError(t, err)
	return id
}
