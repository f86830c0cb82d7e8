// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/weatherdesk/internal/model"
)

// SearchRepository は検索履歴の永続化インターフェース。
// 所有者の判定は呼び出し側（search.Service）の責務で、ここではownerIDをそのまま条件に使う。
type SearchRepository interface {
	// Create は検索履歴を1件INSERTする。IDとCreatedAtは呼び出し側で設定済みであること。
	Create(ctx context.Context, record *model.SearchRecord) error

	// ListRecentByOwner は指定所有者の検索履歴を新しい順に最大limit件取得する。
	// 該当がない場合は空スライスを返す。
	ListRecentByOwner(ctx context.Context, ownerID string, limit int) ([]model.SearchRecord, error)
}
