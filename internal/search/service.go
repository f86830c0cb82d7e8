// Package search は検索履歴のドメインロジックを提供する。
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/weatherdesk/internal/model"
	"github.com/hitoshi/weatherdesk/internal/repository"
	"github.com/hitoshi/weatherdesk/internal/security"
)

// timestampPrecision はPostgreSQLのTIMESTAMPTZが保持する精度。
// 作成時に返すcreatedAtと後で読み出す値を一致させるため、この精度に切り捨てる。
const timestampPrecision = time.Microsecond

// Service は検索履歴のサービス層。
// 所有者は常に解決済みセッションのIdentityで、リクエストボディからは受け取らない。
type Service struct {
	repo      repository.SearchRepository
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// nowがnilの場合はtime.Nowを使用する。
func NewService(repo repository.SearchRepository, sanitizer security.TextSanitizer, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       now,
	}
}

// ListRecent は呼び出し元の検索履歴を新しい順に最大5件返す。
// identityがnilの場合はmodel.ErrAuthenticationRequiredを返す。
func (s *Service) ListRecent(ctx context.Context, identity *model.Identity) ([]model.SearchRecord, error) {
	if identity == nil || identity.ID == "" {
		return nil, model.ErrAuthenticationRequired
	}

	records, err := s.repo.ListRecentByOwner(ctx, identity.ID, model.RecentSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("検索履歴の取得に失敗しました: %w", err)
	}
	if records == nil {
		records = []model.SearchRecord{}
	}
	return records, nil
}

// Create は呼び出し元を所有者とする検索履歴を1件作成して返す。
// 都市名はマークアップを除去して前後の空白を取り除いた結果が空であればCITY_REQUIREDエラーとする。
func (s *Service) Create(ctx context.Context, identity *model.Identity, city string) (*model.SearchRecord, error) {
	if identity == nil || identity.ID == "" {
		return nil, model.ErrAuthenticationRequired
	}

	cleaned := s.sanitizer.Sanitize(city)
	if cleaned == "" {
		return nil, model.NewCityRequiredError()
	}

	record := &model.SearchRecord{
		ID:        uuid.New().String(),
		City:      cleaned,
		OwnerID:   identity.ID,
		CreatedAt: s.now().UTC().Truncate(timestampPrecision),
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("検索履歴の作成に失敗しました: %w", err)
	}

	return record, nil
}
