package handlers

import (
	"github.com/club-kit/credit-service/internal/api/dto"
	"github.com/club-kit/credit-service/internal/domain"
	"github.com/club-kit/credit-service/internal/engine"
	"github.com/club-kit/credit-service/internal/service"
)

func memberSummary(u *domain.User, globalThreshold int) dto.MemberSummary {
	summary := dto.MemberSummary{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             string(u.Role),
		Position:         u.Position,
		JoinedAt:         u.JoinedAt,
		Credits:          u.Credits,
		Threshold:        engine.ResolveThreshold(u, globalThreshold),
		MinThreshold:     u.MinThreshold,
		Status:           string(u.Status),
		SoftDisabled:     u.SoftDisabled,
		SuspensionReason: u.SuspensionReason,
		ApprovalState:    string(u.ApprovalState),
	}
	if u.ManualOverride != nil {
		action := string(*u.ManualOverride)
		summary.ManualOverride = &action
	}
	if !u.UpdatedAt.IsZero() {
		updated := u.UpdatedAt
		summary.UpdatedAt = &updated
	}
	return summary
}

func memberSummaries(users []domain.User, globalThreshold int) []dto.MemberSummary {
	items := make([]dto.MemberSummary, 0, len(users))
	for i := range users {
		items = append(items, memberSummary(&users[i], globalThreshold))
	}
	return items
}

func memberDetail(u *domain.User, globalThreshold int) dto.MemberDetail {
	return dto.MemberDetail{
		MemberSummary: memberSummary(u, globalThreshold),
		Balance:       engine.Balance(u),
		History:       transactions(engine.Recent(u)),
		ThresholdLogs: statusEvents(u.ThresholdLogs),
		RecoveryLogs:  statusEvents(u.RecoveryLogs),
	}
}

func transaction(tx domain.CreditTransaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:        tx.ID,
		Timestamp: tx.Timestamp,
		Amount:    tx.Amount,
		Requested: tx.Requested,
		Reason:    tx.Reason,
		Issuer:    tx.Issuer,
	}
}

func transactions(txs []domain.CreditTransaction) []dto.TransactionResponse {
	items := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, transaction(tx))
	}
	return items
}

// statusEvents renders a log newest first.
func statusEvents(events []domain.StatusEvent) []dto.StatusEventResponse {
	items := make([]dto.StatusEventResponse, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		items = append(items, dto.StatusEventResponse{
			Timestamp: events[i].Timestamp,
			Action:    string(events[i].Action),
			Note:      events[i].Note,
		})
	}
	return items
}

func settingsResponse(s domain.Settings) dto.SettingsResponse {
	return dto.SettingsResponse{GlobalThreshold: s.GlobalThreshold, Buffer: s.Buffer, CreditLock: s.CreditLock}
}

func standing(m service.MemberStanding) dto.StandingResponse {
	return dto.StandingResponse{UserID: m.UserID, Name: m.Name, Credits: m.Credits, Threshold: m.Threshold, Status: string(m.Status)}
}

func standings(members []service.MemberStanding) []dto.StandingResponse {
	items := make([]dto.StandingResponse, 0, len(members))
	for _, m := range members {
		items = append(items, standing(m))
	}
	return items
}

func recoveryResponse(r *domain.RecoveryRequest) dto.RecoveryResponse {
	return dto.RecoveryResponse{
		ID:         r.ID,
		UserID:     r.UserID,
		Plan:       r.Plan,
		State:      string(r.State),
		ReviewNote: r.ReviewNote,
		ReviewedBy: r.ReviewedBy,
		CreatedAt:  r.CreatedAt,
		ReviewedAt: r.ReviewedAt,
	}
}
