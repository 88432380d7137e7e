// Command cloudhms は病院ポータルの認証・認可APIサーバーを起動する。
//
// サブコマンド:
//
//	serve        APIサーバーを起動する（デフォルト）
//	migrate      データベースマイグレーションを適用する
//	cleanup      期限切れセッションを削除する
//	healthcheck  /health を確認する（distrolessコンテナ用）
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/cloudhms/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
