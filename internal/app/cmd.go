package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe は占いボットとして起動することを示す。
	CommandServe Command = "serve"
	// CommandIntake はアンケートボットとして起動することを示す。
	CommandIntake Command = "intake"
	// CommandGenerate は全モードのキャッシュを1回だけ作り直すことを示す。
	CommandGenerate Command = "generate"
	// CommandTrim はテキスト整形を実行することを示す。
	CommandTrim Command = "trim"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "intake":
		return CommandIntake
	case "generate":
		return CommandGenerate
	case "trim":
		return CommandTrim
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
