package app

import (
	"errors"
	"fmt"
	"strings"
)

// Command は起動モード（サブコマンド）を表す。
type Command string

const (
	// CommandServe は課外活動APIと静的フロントエンドを配信する。引数省略時のモード。
	CommandServe Command = "serve"
	// CommandWorker はregistration_eventsの保持期間を過ぎた監査ログを定期削除する。
	CommandWorker Command = "worker"
	// CommandMigrate はregistration_eventsのスキーマを最新まで適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のserveの/healthを叩き、結果を終了コードで返す。
	// シェルのないdistrolessイメージのDocker HEALTHCHECK用。
	CommandHealthcheck Command = "healthcheck"
)

// commands はサポートするサブコマンドの一覧。usageの表示順でもある。
var commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// ErrUnknownCommand はサポート外のサブコマンドが指定されたことを示す。
var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空ならCommandServeを返す。2つ目以降の引数は無視する。
// 綴り間違いで意図せずAPIサーバーが起動しないよう、サポート外の値はErrUnknownCommandを返す。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	for _, c := range commands {
		if args[0] == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w %q (want %s)", ErrUnknownCommand, args[0], usage())
}

func usage() string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = string(c)
	}
	return strings.Join(names, "|")
}
