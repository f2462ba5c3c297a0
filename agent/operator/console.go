package operator

import (
	"context"
	"fmt"
	"io"
	"os"
)

// ConsoleUserChannel prints replies to the terminal. Used when the
// coordinator runs in console mode instead of behind the webhook.
type ConsoleUserChannel struct {
	out io.Writer
}

func NewConsoleUserChannel() *ConsoleUserChannel {
	return &ConsoleUserChannel{out: os.Stdout}
}

func (c *ConsoleUserChannel) Send(ctx context.Context, userID, text string) error {
	_, err := fmt.Fprintf(c.out, "\nAsistente (%s): %s\n", userID, text)
	return err
}
