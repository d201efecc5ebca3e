// clanlog posts a single message to the Discord status channel and waits for
// the delivery outcome. Credentials come from flags or the same environment
// variables the daemon reads.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"clanwatch/internal/discord"
	"clanwatch/internal/logging"
)

func main() {
	var (
		token   = flag.String("token", os.Getenv("DISCORD_BOT_TOKEN"), "bot token (default $DISCORD_BOT_TOKEN)")
		channel = flag.String("channel", os.Getenv("DISCORD_LOG_CHANNELID"), "channel id (default $DISCORD_LOG_CHANNELID)")
		mention = flag.String("mention", os.Getenv("DISCORD_MENTION_USERID"), "user id to mention on errors (default $DISCORD_MENTION_USERID)")
		origin  = flag.String("origin", "cli", "origin label for the message")
		timeout = flag.Duration("timeout", 30*time.Second, "how long to wait for delivery")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: clanlog [flags] <log|info|success|warning|error> <message...>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}
	severity := flag.Arg(0)
	text := strings.Join(flag.Args()[1:], " ")

	dlog, err := discord.New(discord.Config{
		Token:         *token,
		ChannelID:     *channel,
		MentionUserID: *mention,
	}, logging.New("warn"))
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}

	var receipt *discord.Receipt
	switch severity {
	case "log":
		receipt = dlog.Log(text, *origin)
	case "info":
		receipt = dlog.Info(text, *origin)
	case "success":
		receipt = dlog.Success(text, *origin)
	case "warning":
		receipt = dlog.Warning(text, *origin)
	case "error":
		receipt = dlog.Error(text, *origin)
	default:
		fmt.Printf("error: unknown severity %q\n", severity)
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	delivered, err := receipt.Wait(ctx)
	if err != nil {
		// Out of time; let any in-flight retry wind down briefly.
		dlog.ForcedFlush(time.Second)
		fmt.Println("error: delivery timed out")
		os.Exit(1)
	}
	if !delivered {
		fmt.Println("error: delivery failed")
		os.Exit(1)
	}
}
