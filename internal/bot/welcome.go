package bot

import "fmt"

const welcomeTemplate = `Hello, %s!

Welcome to the URL Shortener Bot!
Send or forward any message with links and I will reply with every link shortened through your own shortener account.

How to use me:

1. Register with the shortening service.

2. Copy your API key from the service's API tools page.

3. Add your API key using the command:
/setapi YOUR_API_KEY

Example: /setapi c49399f821fc020161bc2a31475ec59f35ae5b4

Links in photo, video and document captions are shortened too.`

// WelcomeText returns the /start reply for username.
func WelcomeText(username string) string {
	if username == "" {
		username = "User"
	}

	return fmt.Sprintf(welcomeTemplate, username)
}
