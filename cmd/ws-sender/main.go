package main

import (
	"github.com/informalsystems/ws-sender/pkg/sender"
)

const appLongDesc = `Keeps one WebSockets connection open per token, sending the same JSON message
on every connection at a fixed interval and printing whatever comes back.
Connections that fail are re-established automatically.

Each non-blank line of the tokens file is appended to the base URL to form
one endpoint:
    ws-sender --tokens-file tokens.txt --interval 2.5 \
        --message '{"type":"ping"}'

To send a fixed number of messages per connection and then exit:
    ws-sender --count 10 --interval 0

Against a local test server without a valid certificate:
    ws-sender --base-url "wss://localhost:8443/api/websocket?token=" --insecure
`

const (
	defaultBaseURL    = "wss://localhost:8443/api/websocket?token="
	defaultTokensFile = "tokens.txt"
	defaultMessage    = `{"type":"send_public_message","data":{"message_type":1,"content":""}}`
)

func main() {
	sender.Run(&sender.CLIConfig{
		AppName:           "ws-sender",
		AppShortDesc:      "Self-healing pool of WebSockets senders",
		AppLongDesc:       appLongDesc,
		DefaultBaseURL:    defaultBaseURL,
		DefaultTokensFile: defaultTokensFile,
		DefaultMessage:    defaultMessage,
	})
}
