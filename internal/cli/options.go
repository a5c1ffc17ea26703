package cli

// Options are the global flags shared by every command.
type Options struct {
	Config   string `short:"c" long:"config" description:"config file (defaults to CONFIG_PATH or ./apiclient.yaml)"`
	BaseURL  string `short:"u" long:"base-url" description:"API base URL, e.g. http://127.0.0.1:8000/api"`
	Store    string `short:"s" long:"store" description:"token store" choice:"memory" choice:"file" choice:"redis" choice:"dynamodb" choice:"postgres"`
	StoreURL string `long:"store-url" description:"token store location for the file store"`

	Login     LoginCommand     `command:"login" description:"sign in with email or username and password"`
	Register  RegisterCommand  `command:"register" description:"create an account and sign in"`
	Me        MeCommand        `command:"me" description:"print the signed-in user"`
	Logout    LogoutCommand    `command:"logout" description:"revoke the session and forget local tokens"`
	SendOTP   SendOTPCommand   `command:"send-otp" description:"text a one-time code to a phone"`
	VerifyOTP VerifyOTPCommand `command:"verify-otp" description:"sign in with a one-time code"`
	Status    StatusCommand    `command:"status" description:"show local session state"`
}

type LoginCommand struct {
	Identifier string `short:"i" long:"identifier" description:"email or username" required:"true"`
	Password   string `short:"p" long:"password" description:"password" env:"APICLIENT_PASSWORD" required:"true"`
	app        *app
}

type RegisterCommand struct {
	Email     string `short:"e" long:"email" description:"email" required:"true"`
	Password  string `short:"p" long:"password" description:"password" env:"APICLIENT_PASSWORD" required:"true"`
	Username  string `long:"username" description:"username, defaults to email"`
	FirstName string `long:"first-name" description:"first name"`
	LastName  string `long:"last-name" description:"last name"`
	app       *app
}

type MeCommand struct {
	app *app
}

type LogoutCommand struct {
	app *app
}

type SendOTPCommand struct {
	Phone string `long:"phone" description:"phone number" required:"true"`
	app   *app
}

type VerifyOTPCommand struct {
	Phone string `long:"phone" description:"phone number" required:"true"`
	OTP   string `long:"otp" description:"one-time code" required:"true"`
	app   *app
}

type StatusCommand struct {
	app *app
}
