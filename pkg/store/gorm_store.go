package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"marketmind/pkg/domain"
)

const migrateLockID int64 = 52915291

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&ConversationModel{}, &MessageModel{}, &ArtifactModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				DELETE FROM message_models m
				WHERE NOT EXISTS (SELECT 1 FROM conversation_models c WHERE c.id = m.conversation_id);
				DELETE FROM artifact_models a
				WHERE NOT EXISTS (SELECT 1 FROM conversation_models c WHERE c.id = a.conversation_id);
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'message_models'
					AND constraint_name = 'message_models_conversation_id_fkey'
				) THEN
					ALTER TABLE message_models
					ADD CONSTRAINT message_models_conversation_id_fkey
					FOREIGN KEY (conversation_id) REFERENCES conversation_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'artifact_models'
					AND constraint_name = 'artifact_models_conversation_id_fkey'
				) THEN
					ALTER TABLE artifact_models
					ADD CONSTRAINT artifact_models_conversation_id_fkey
					FOREIGN KEY (conversation_id) REFERENCES conversation_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("add foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// withMigrationLock serializes schema migrations across replicas using a
// session-scoped Postgres advisory lock on a dedicated connection.
func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(context.Background(), conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateConversation inserts a new conversation row.
func (s *GormStore) CreateConversation(c domain.Conversation) error {
	model := conversationToModel(c)
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// GetConversation resolves a conversation scoped to its owner.
func (s *GormStore) GetConversation(id, ownerID string) (domain.Conversation, bool, error) {
	var model ConversationModel
	err := s.db.Where("id = ? AND owner_id = ?", id, ownerID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Conversation{}, false, nil
	}
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("get conversation: %w", err)
	}
	return conversationFromModel(model), true, nil
}

// ListConversationsByOwner returns an owner's conversations, most recently
// updated first.
func (s *GormStore) ListConversationsByOwner(ownerID string) ([]domain.Conversation, error) {
	var models []ConversationModel
	if err := s.db.Where("owner_id = ?", ownerID).Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	res := make([]domain.Conversation, 0, len(models))
	for _, m := range models {
		res = append(res, conversationFromModel(m))
	}
	return res, nil
}

// AppendMessages writes the batch and refreshes the conversation timestamp in
// one transaction.
func (s *GormStore) AppendMessages(conversationID string, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	models := make([]MessageModel, 0, len(msgs))
	for _, msg := range msgs {
		models = append(models, messageToModel(conversationID, msg))
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models).Error; err != nil {
			return err
		}
		res := tx.Model(&ConversationModel{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now().UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append messages: %w", err)
	}
	return nil
}

// ListMessages returns the most recent messages in chronological order.
func (s *GormStore) ListMessages(conversationID string, limit int) ([]domain.Message, error) {
	query := s.db.Where("conversation_id = ?", conversationID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []MessageModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	res := make([]domain.Message, len(models))
	for i, m := range models {
		res[len(models)-1-i] = messageFromModel(m)
	}
	return res, nil
}

// SetCurrentArtifact replaces the conversation's artifact slot, bumping the
// version. Returns the stored artifact.
func (s *GormStore) SetCurrentArtifact(a domain.Artifact) (domain.Artifact, error) {
	now := time.Now().UTC()
	var stored domain.Artifact
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing ArtifactModel
		err := tx.Where("conversation_id = ?", a.ConversationID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			a.Version = 1
			a.CreatedAt = now
		case err != nil:
			return err
		default:
			a.Version = existing.Version + 1
			a.CreatedAt = existing.CreatedAt
		}
		a.UpdatedAt = now
		model, err := artifactToModel(a)
		if err != nil {
			return err
		}
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		stored = a
		return nil
	})
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("set artifact: %w", err)
	}
	return stored, nil
}

// GetCurrentArtifact returns the conversation's artifact pointer, if any.
func (s *GormStore) GetCurrentArtifact(conversationID string) (domain.Artifact, bool, error) {
	var model ArtifactModel
	err := s.db.Where("conversation_id = ?", conversationID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Artifact{}, false, nil
	}
	if err != nil {
		return domain.Artifact{}, false, fmt.Errorf("get artifact: %w", err)
	}
	artifact, err := artifactFromModel(model)
	if err != nil {
		return domain.Artifact{}, false, fmt.Errorf("decode artifact: %w", err)
	}
	return artifact, true, nil
}

func conversationToModel(c domain.Conversation) ConversationModel {
	return ConversationModel{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func conversationFromModel(m ConversationModel) domain.Conversation {
	return domain.Conversation{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func messageToModel(conversationID string, msg domain.Message) MessageModel {
	return MessageModel{
		ID:             msg.ID,
		ConversationID: conversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

func artifactToModel(a domain.Artifact) (ArtifactModel, error) {
	var meta datatypes.JSON
	if len(a.Metadata) > 0 {
		raw, err := json.Marshal(a.Metadata)
		if err != nil {
			return ArtifactModel{}, fmt.Errorf("marshal artifact metadata: %w", err)
		}
		meta = datatypes.JSON(raw)
	}
	return ArtifactModel{
		ConversationID: a.ConversationID,
		Version:        a.Version,
		StorageKey:     a.StorageKey,
		ContentType:    a.ContentType,
		Metadata:       meta,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}, nil
}

func artifactFromModel(m ArtifactModel) (domain.Artifact, error) {
	var meta map[string]string
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &meta); err != nil {
			return domain.Artifact{}, err
		}
	}
	return domain.Artifact{
		ConversationID: m.ConversationID,
		Version:        m.Version,
		StorageKey:     m.StorageKey,
		ContentType:    m.ContentType,
		Metadata:       meta,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}
