package repository

import (
	"context"
	"errors"
	"time"

	domainChat "github.com/AzielCF/az-juris/domains/chat"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type chatModel struct {
	ID            string     `gorm:"primaryKey"`
	TenantID      string     `gorm:"column:tenant_id;not null;index"`
	InstanceID    string     `gorm:"column:instance_id;not null;uniqueIndex:idx_chats_instance_remote,priority:1"`
	RemoteJID     string     `gorm:"column:remote_jid;not null;uniqueIndex:idx_chats_instance_remote,priority:2"`
	DisplayName   string     `gorm:"column:display_name"`
	CaseID        *string    `gorm:"column:case_id;index"`
	LastMessage   string     `gorm:"column:last_message;type:text"`
	LastMessageAt *time.Time `gorm:"column:last_message_at;index"`
	UnreadCount   int        `gorm:"column:unread_count;not null;default:0"`
	IsGroup       bool       `gorm:"column:is_group;not null;default:false"`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
}

func (chatModel) TableName() string {
	return "chats"
}

type messageModel struct {
	ID               string    `gorm:"primaryKey"`
	TenantID         string    `gorm:"column:tenant_id;not null;uniqueIndex:idx_messages_tenant_gateway,priority:1"`
	GatewayMessageID string    `gorm:"column:gateway_message_id;not null;uniqueIndex:idx_messages_tenant_gateway,priority:2"`
	ChatID           string    `gorm:"column:chat_id;not null;index:idx_messages_chat_time,priority:1"`
	RemoteJID        string    `gorm:"column:remote_jid;not null"`
	Direction        string    `gorm:"column:direction;not null"`
	Kind             string    `gorm:"column:kind;not null"`
	Content          string    `gorm:"column:content;type:text"`
	Timestamp        time.Time `gorm:"column:sent_at;not null;index:idx_messages_chat_time,priority:2"`
	Status           string    `gorm:"column:status;not null"`
	MediaURL         string    `gorm:"column:media_url;type:text"`
	FileName         string    `gorm:"column:file_name"`
	Caption          string    `gorm:"column:caption;type:text"`
	MimeType         string    `gorm:"column:mime_type"`
	PushName         string    `gorm:"column:push_name"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (messageModel) TableName() string {
	return "messages"
}

// pendingStatusModel holds a status update that arrived before its message.
type pendingStatusModel struct {
	TenantID         string    `gorm:"column:tenant_id;primaryKey"`
	GatewayMessageID string    `gorm:"column:gateway_message_id;primaryKey"`
	Status           string    `gorm:"column:status;not null"`
	ReceivedAt       time.Time `gorm:"column:received_at;not null"`
}

func (pendingStatusModel) TableName() string {
	return "pending_statuses"
}

type ChatGormRepository struct {
	db *gorm.DB
}

func NewChatGormRepository(db *gorm.DB) *ChatGormRepository {
	return &ChatGormRepository{db: db}
}

func (r *ChatGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&chatModel{}, &messageModel{}, &pendingStatusModel{})
}

// UpsertChat returns the chat for (instance, remote JID), creating it on
// first contact. A non-empty display name refreshes the stored one.
func (r *ChatGormRepository) UpsertChat(ctx context.Context, c domainChat.Chat) (domainChat.Chat, error) {
	db := r.db.WithContext(ctx)

	model := toChatModel(c)
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instance_id"}, {Name: "remote_jid"}},
		DoNothing: true,
	}).Create(&model).Error
	if err != nil {
		return domainChat.Chat{}, err
	}

	var stored chatModel
	if err := db.Where("instance_id = ? AND remote_jid = ?", c.InstanceID, c.RemoteJID).First(&stored).Error; err != nil {
		return domainChat.Chat{}, err
	}
	if stored.TenantID != c.TenantID {
		return domainChat.Chat{}, domainChat.ErrChatTenant
	}

	if c.DisplayName != "" && c.DisplayName != stored.DisplayName {
		if err := db.Model(&chatModel{}).Where("id = ?", stored.ID).Update("display_name", c.DisplayName).Error; err != nil {
			return domainChat.Chat{}, err
		}
		stored.DisplayName = c.DisplayName
	}
	return fromChatModel(stored), nil
}

func (r *ChatGormRepository) GetChat(ctx context.Context, tenantID, chatID string) (domainChat.Chat, error) {
	var m chatModel
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, chatID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainChat.Chat{}, domainChat.ErrChatNotFound
		}
		return domainChat.Chat{}, err
	}
	return fromChatModel(m), nil
}

// LinkCase sets the case only while the chat has none.
func (r *ChatGormRepository) LinkCase(ctx context.Context, chatID, caseID string) error {
	return r.db.WithContext(ctx).Model(&chatModel{}).
		Where("id = ? AND case_id IS NULL", chatID).
		Update("case_id", caseID).Error
}

// AppendOrUpdateMessage inserts the message unless (tenant, gateway id)
// already exists. On insert it consumes any pending status and advances the
// chat preview; on conflict only a forward status move is applied.
func (r *ChatGormRepository) AppendOrUpdateMessage(ctx context.Context, msg domainChat.Message) (domainChat.StoreResult, error) {
	var result domainChat.StoreResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := toMessageModel(msg)
		if model.ID == "" {
			model.ID = uuid.New().String()
		}

		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "gateway_message_id"}},
			DoNothing: true,
		}).Create(&model)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return r.mergeDuplicate(tx, msg, &result)
		}

		result.Inserted = true
		if err := r.consumePending(tx, &model); err != nil {
			return err
		}
		if err := r.advanceChat(tx, model); err != nil {
			return err
		}
		result.Message = fromMessageModel(model)
		return nil
	})
	if err != nil {
		return domainChat.StoreResult{}, err
	}
	return result, nil
}

func (r *ChatGormRepository) mergeDuplicate(tx *gorm.DB, msg domainChat.Message, result *domainChat.StoreResult) error {
	if msg.Status != domainChat.StatusError && msg.Status != "" {
		err := tx.Model(&messageModel{}).
			Where("tenant_id = ? AND gateway_message_id = ? AND status IN ?", msg.TenantID, msg.GatewayMessageID, msg.Status.Replaceable()).
			Update("status", string(msg.Status)).Error
		if err != nil {
			return err
		}
	}

	var existing messageModel
	if err := tx.Where("tenant_id = ? AND gateway_message_id = ?", msg.TenantID, msg.GatewayMessageID).First(&existing).Error; err != nil {
		return err
	}
	result.Message = fromMessageModel(existing)
	return nil
}

func (r *ChatGormRepository) consumePending(tx *gorm.DB, model *messageModel) error {
	var pending pendingStatusModel
	err := tx.Where("tenant_id = ? AND gateway_message_id = ?", model.TenantID, model.GatewayMessageID).First(&pending).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	status := domainChat.Status(pending.Status)
	if status.Advances(domainChat.Status(model.Status)) {
		if err := tx.Model(&messageModel{}).Where("id = ?", model.ID).Update("status", pending.Status).Error; err != nil {
			return err
		}
		model.Status = pending.Status
	}
	logrus.Debugf("[CHATSTORE] applied pending status %s to %s", pending.Status, model.GatewayMessageID)
	return tx.Where("tenant_id = ? AND gateway_message_id = ?", model.TenantID, model.GatewayMessageID).
		Delete(&pendingStatusModel{}).Error
}

// advanceChat moves the preview only forward in time and counts unread
// inbound messages.
func (r *ChatGormRepository) advanceChat(tx *gorm.DB, model messageModel) error {
	err := tx.Model(&chatModel{}).
		Where("id = ? AND (last_message_at IS NULL OR last_message_at <= ?)", model.ChatID, model.Timestamp).
		Updates(map[string]any{
			"last_message":    model.Content,
			"last_message_at": model.Timestamp,
		}).Error
	if err != nil {
		return err
	}

	if model.Direction == string(domainChat.DirectionInbound) {
		return tx.Model(&chatModel{}).
			Where("id = ?", model.ChatID).
			UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
	}
	return nil
}

// ApplyStatus moves a stored message's status forward. When the message is
// not stored yet the status is parked until its upsert arrives. Returns
// whether a stored message was updated.
func (r *ChatGormRepository) ApplyStatus(ctx context.Context, tenantID, gatewayMessageID string, status domainChat.Status) (bool, error) {
	db := r.db.WithContext(ctx)

	applied, exists, err := r.advanceStatus(db, tenantID, gatewayMessageID, status)
	if err != nil || exists {
		return applied, err
	}

	pending := pendingStatusModel{
		TenantID:         tenantID,
		GatewayMessageID: gatewayMessageID,
		Status:           string(status),
		ReceivedAt:       time.Now().UTC(),
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "gateway_message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "received_at"}),
	}).Create(&pending).Error
	if err != nil {
		return false, err
	}

	// The upsert may have committed between the first attempt and parking.
	applied, exists, err = r.advanceStatus(db, tenantID, gatewayMessageID, status)
	if err != nil || !exists {
		return applied, err
	}
	return applied, db.Where("tenant_id = ? AND gateway_message_id = ?", tenantID, gatewayMessageID).
		Delete(&pendingStatusModel{}).Error
}

func (r *ChatGormRepository) advanceStatus(db *gorm.DB, tenantID, gatewayMessageID string, status domainChat.Status) (applied, exists bool, err error) {
	res := db.Model(&messageModel{}).
		Where("tenant_id = ? AND gateway_message_id = ? AND status IN ?", tenantID, gatewayMessageID, status.Replaceable()).
		Update("status", string(status))
	if res.Error != nil {
		return false, false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, true, nil
	}

	var count int64
	if err := db.Model(&messageModel{}).
		Where("tenant_id = ? AND gateway_message_id = ?", tenantID, gatewayMessageID).
		Count(&count).Error; err != nil {
		return false, false, err
	}
	return false, count > 0, nil
}

func (r *ChatGormRepository) ListChats(ctx context.Context, tenantID, instanceID string) ([]domainChat.Chat, error) {
	var models []chatModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND instance_id = ?", tenantID, instanceID).
		Order("last_message_at IS NULL, last_message_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domainChat.Chat, 0, len(models))
	for _, m := range models {
		out = append(out, fromChatModel(m))
	}
	return out, nil
}

// ListMessages returns the newest page older than before, oldest first.
func (r *ChatGormRepository) ListMessages(ctx context.Context, tenantID, chatID string, limit int, before *time.Time) ([]domainChat.Message, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ? AND chat_id = ?", tenantID, chatID)
	if before != nil {
		query = query.Where("sent_at < ?", before.UTC())
	}

	var models []messageModel
	if err := query.Order("sent_at DESC, id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]domainChat.Message, len(models))
	for i, m := range models {
		out[len(models)-1-i] = fromMessageModel(m)
	}
	return out, nil
}

func (r *ChatGormRepository) MarkRead(ctx context.Context, tenantID, chatID string) error {
	res := r.db.WithContext(ctx).Model(&chatModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, chatID).
		UpdateColumn("unread_count", 0)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainChat.ErrChatNotFound
	}
	return nil
}

func toChatModel(c domainChat.Chat) chatModel {
	m := chatModel{
		ID:            c.ID,
		TenantID:      c.TenantID,
		InstanceID:    c.InstanceID,
		RemoteJID:     c.RemoteJID,
		DisplayName:   c.DisplayName,
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
		UnreadCount:   c.UnreadCount,
		IsGroup:       c.IsGroup,
	}
	if c.CaseID != "" {
		caseID := c.CaseID
		m.CaseID = &caseID
	}
	return m
}

func fromChatModel(m chatModel) domainChat.Chat {
	c := domainChat.Chat{
		ID:            m.ID,
		TenantID:      m.TenantID,
		InstanceID:    m.InstanceID,
		RemoteJID:     m.RemoteJID,
		DisplayName:   m.DisplayName,
		LastMessage:   m.LastMessage,
		LastMessageAt: m.LastMessageAt,
		UnreadCount:   m.UnreadCount,
		IsGroup:       m.IsGroup,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.CaseID != nil {
		c.CaseID = *m.CaseID
	}
	return c
}

func toMessageModel(msg domainChat.Message) messageModel {
	return messageModel{
		ID:               msg.ID,
		TenantID:         msg.TenantID,
		GatewayMessageID: msg.GatewayMessageID,
		ChatID:           msg.ChatID,
		RemoteJID:        msg.RemoteJID,
		Direction:        string(msg.Direction),
		Kind:             string(msg.Content.Kind),
		Content:          msg.Content.Text,
		Timestamp:        msg.Timestamp.UTC(),
		Status:           string(msg.Status),
		MediaURL:         msg.Content.MediaURL,
		FileName:         msg.Content.FileName,
		Caption:          msg.Content.Caption,
		MimeType:         msg.Content.MimeType,
		PushName:         msg.PushName,
	}
}

func fromMessageModel(m messageModel) domainChat.Message {
	return domainChat.Message{
		ID:               m.ID,
		TenantID:         m.TenantID,
		ChatID:           m.ChatID,
		GatewayMessageID: m.GatewayMessageID,
		RemoteJID:        m.RemoteJID,
		Direction:        domainChat.Direction(m.Direction),
		Content: domainChat.Content{
			Kind:     domainChat.Kind(m.Kind),
			Text:     m.Content,
			MediaURL: m.MediaURL,
			FileName: m.FileName,
			Caption:  m.Caption,
			MimeType: m.MimeType,
		},
		Status:    domainChat.Status(m.Status),
		PushName:  m.PushName,
		Timestamp: m.Timestamp,
		CreatedAt: m.CreatedAt,
	}
}
