// Package model はドメインモデルを定義する。
package model

// Identity は外部IdPがセッションごとに主張するユーザーを表す。
// このシステムでは作成も削除もせず、セッショントークンのクレームから復元する。
type Identity struct {
	ID    string
	Email string
}
