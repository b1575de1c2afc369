package app

// Command はCLIのサブコマンドを表す。
type Command string

const (
	CommandLogin    Command = "login"
	CommandRegister Command = "register"
	CommandLogout   Command = "logout"
	// CommandStatus は保存済みセッションを確認して表示する。
	CommandStatus Command = "status"

	// CommandFeed は質問の一覧を表示する。
	CommandFeed Command = "feed"
	// CommandQuestion は質問と回答の詳細を表示する。
	CommandQuestion Command = "question"
	// CommandAsk はメディアをアップロードして質問を投稿する。
	CommandAsk Command = "ask"
	// CommandAnswer は質問に回答する（教員・管理者のみ）。
	CommandAnswer Command = "answer"

	CommandEditQuestion   Command = "edit-question"
	CommandDeleteQuestion Command = "delete-question"
	CommandEditAnswer     Command = "edit-answer"
	CommandDeleteAnswer   Command = "delete-answer"

	// CommandAdmin は管理者向けのサブコマンド（stats, moderate, flagged, users, activity）。
	CommandAdmin Command = "admin"

	// CommandWatch はフィードを定期的に取得し、新しい質問を表示し続ける。
	CommandWatch Command = "watch"
	// CommandMigrate はpostgresストレージのマイグレーションを実行する。
	CommandMigrate Command = "migrate"
	// CommandHelp は使い方を表示する。
	CommandHelp Command = "help"
)

// commands はParseCommandが受け付けるサブコマンド。
var commands = map[Command]bool{
	CommandLogin:          true,
	CommandRegister:       true,
	CommandLogout:         true,
	CommandStatus:         true,
	CommandFeed:           true,
	CommandQuestion:       true,
	CommandAsk:            true,
	CommandAnswer:         true,
	CommandEditQuestion:   true,
	CommandDeleteQuestion: true,
	CommandEditAnswer:     true,
	CommandDeleteAnswer:   true,
	CommandAdmin:          true,
	CommandWatch:          true,
	CommandMigrate:        true,
	CommandHelp:           true,
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandHelpを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandHelp
	}
	cmd := Command(args[0])
	if !commands[cmd] {
		return CommandHelp
	}
	return cmd
}

// needsSession は実行前に保存済みセッションの復元が必要なコマンドかを返す。
func (c Command) needsSession() bool {
	switch c {
	case CommandLogin, CommandRegister, CommandLogout, CommandMigrate, CommandHelp:
		return false
	default:
		return true
	}
}

const usage = `Usage: peerview <command> [flags] [args]

Session:
  login -email EMAIL -password PASSWORD
  register -email EMAIL -password PASSWORD -name NAME [-role student|teacher]
  logout
  status

Questions:
  feed [-v1] [-page N] [-limit N]
  question [-v1] QUESTION_ID
  ask -title TITLE -caption CAPTION -file PATH [-legacy]
  answer [-legacy] [-media URL] QUESTION_ID TEXT
  edit-question -title TITLE -caption CAPTION QUESTION_ID
  delete-question QUESTION_ID
  edit-answer [-media URL] ANSWER_ID TEXT
  delete-answer ANSWER_ID

Admin:
  admin stats
  admin moderate -type question|answer -id ID -action remove|flag
  admin flagged
  admin users [-page N] [-limit N]
  admin activity USER_ID

Other:
  watch [-v1] [-interval DURATION]
  migrate
  help
`
