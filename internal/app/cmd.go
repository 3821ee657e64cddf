package app

// Command はバイナリの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーとして起動する。
	CommandServe Command = "serve"
	// CommandWorker はバックグラウンドワーカーとして起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はスキーママイグレーションのみを実行して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中サーバーへのヘルスチェックを行う。
	// シェルのないdistrolessコンテナでのDocker HEALTHCHECK用。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	"serve":       CommandServe,
	"worker":      CommandWorker,
	"migrate":     CommandMigrate,
	"healthcheck": CommandHealthcheck,
}

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空、または未知のコマンドの場合はCommandServeにフォールバックする。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
