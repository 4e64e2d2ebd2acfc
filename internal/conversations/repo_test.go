package conversations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
)

func setupMessagesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	messages := `
CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  agent TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(messages).Error)
	t.Cleanup(func() {
		db.Exec("DELETE FROM messages")
	})
	return db
}

func TestCountByAgentGroupsPerTenant(t *testing.T) {
	db := setupMessagesTestDB(t)
	repo := NewRepository(db)
	tenantID := uuid.New()
	other := uuid.New()

	seed := func(tenant uuid.UUID, agent, role string) {
		require.NoError(t, db.Create(&models.Message{
			ID:       uuid.New(),
			TenantID: tenant,
			Agent:    agent,
			Role:     role,
		}).Error)
	}
	seed(tenantID, "support-bot", "assistant")
	seed(tenantID, "support-bot", "user")
	seed(tenantID, "sales-bot", "assistant")
	seed(other, "support-bot", "assistant")

	counts, err := repo.CountByAgent(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, AgentCount{Agent: "sales-bot", MessageCount: 1}, counts[0])
	assert.Equal(t, AgentCount{Agent: "support-bot", MessageCount: 2}, counts[1])
}

func TestCountByAgentEmptyTenant(t *testing.T) {
	db := setupMessagesTestDB(t)
	repo := NewRepository(db)

	counts, err := repo.CountByAgent(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, counts)
}
