package messenger

// BotInfo identifies the bot account, returned by getMe.
type BotInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Command is a bot menu entry registered via setMyCommands.
type Command struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// InlineButton is a single URL button rendered under a message.
type InlineButton struct {
	Text string
	URL  string
}

// SendMessage describes one outbound message. Button attaches an inline URL
// keyboard; RequestContact attaches a one-time reply keyboard asking the user
// to share their phone number (registration flow).
type SendMessage struct {
	ChatID         string
	Text           string
	Button         *InlineButton
	RequestContact string
	RemoveKeyboard bool
}

// Update is one long-polling event from getUpdates. Only message updates are
// consumed.
type Update struct {
	UpdateID int64            `json:"update_id"`
	Message  *IncomingMessage `json:"message"`
}

// IncomingMessage is a message the bot received from a user.
type IncomingMessage struct {
	From    *User    `json:"from"`
	Chat    Chat     `json:"chat"`
	Text    string   `json:"text"`
	Contact *Contact `json:"contact"`
}

type User struct {
	ID int64 `json:"id"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// Contact is a shared phone contact.
type Contact struct {
	PhoneNumber string `json:"phone_number"`
	UserID      int64  `json:"user_id"`
}
