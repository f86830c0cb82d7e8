package model

import "time"

// RecentSearchLimit は検索履歴一覧で返す最大件数。
const RecentSearchLimit = 5

// SearchRecord は1回の都市検索の永続化レコードを表す。
// 所有者はちょうど1つのIdentityで、作成後に更新されることはない。
type SearchRecord struct {
	ID        string    `json:"id"`
	City      string    `json:"city"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}
