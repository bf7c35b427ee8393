package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

func channelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Inspect and post to company channels",
	}
	cmd.AddCommand(channelsListCmd())
	cmd.AddCommand(channelsHistoryCmd())
	cmd.AddCommand(channelsPostCmd())
	return cmd
}

func channelsListCmd() *cobra.Command {
	var memberID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialGateway()
			if err != nil {
				return err
			}
			defer client.Close()

			params := map[string]interface{}{}
			if memberID != "" {
				params["memberId"] = memberID
			}
			var out struct {
				Channels []store.ChannelPreview `json:"channels"`
			}
			if err := client.Call(protocol.MethodChannelsList, params, &out); err != nil {
				return err
			}

			if len(out.Channels) == 0 {
				fmt.Println("No channels.")
				return nil
			}
			for _, ch := range out.Channels {
				fmt.Printf("#%s  (%s, %d members)\n", ch.Name, ch.Type, ch.MemberCount)
				if ch.LastMessage != nil {
					fmt.Printf("    last: [%s] %s\n", ch.LastMessage.SenderID, firstLine(ch.LastMessage.Text))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&memberID, "member", "", "only channels this member belongs to")
	return cmd
}

func channelsHistoryCmd() *cobra.Command {
	var (
		channel  string
		limit    int
		threadID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print a channel's recent messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if channel == "" {
				return fmt.Errorf("--channel is required")
			}

			client, err := dialGateway()
			if err != nil {
				return err
			}
			defer client.Close()

			params := map[string]interface{}{"channel": channel}
			if cmd.Flags().Changed("limit") {
				params["limit"] = limit
			}
			if threadID != "" {
				params["threadId"] = threadID
			}
			var out struct {
				Messages []store.ChannelMessage `json:"messages"`
			}
			if err := client.Call(protocol.MethodChannelsHistory, params, &out); err != nil {
				return err
			}

			if len(out.Messages) == 0 {
				fmt.Println("No messages.")
				return nil
			}
			printHistory(out.Messages)
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "channel name or id")
	cmd.Flags().IntVar(&limit, "limit", 50, "max messages to fetch")
	cmd.Flags().StringVar(&threadID, "thread", "", "only messages in this thread")
	return cmd
}

// printHistory renders [sender] text rows with the sender column aligned
// by display width, so CJK and emoji sender ids line up too.
func printHistory(messages []store.ChannelMessage) {
	senderWidth := 0
	for _, m := range messages {
		if w := runewidth.StringWidth("[" + m.SenderID + "]"); w > senderWidth {
			senderWidth = w
		}
	}
	for _, m := range messages {
		ts := time.UnixMilli(m.Timestamp).Format("15:04")
		tag := runewidth.FillRight("["+m.SenderID+"]", senderWidth)
		lines := strings.Split(m.Text, "\n")
		fmt.Printf("%s %s %s\n", ts, tag, lines[0])
		for _, line := range lines[1:] {
			fmt.Printf("%s %s %s\n", strings.Repeat(" ", 5), strings.Repeat(" ", senderWidth), line)
		}
	}
}

func channelsPostCmd() *cobra.Command {
	var (
		channel  string
		sender   string
		threadID string
	)
	cmd := &cobra.Command{
		Use:   "post <text>",
		Short: "Post a message to a channel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if channel == "" {
				return fmt.Errorf("--channel is required")
			}
			text := strings.Join(args, " ")

			client, err := dialGateway()
			if err != nil {
				return err
			}
			defer client.Close()

			params := map[string]interface{}{
				"channel":  channel,
				"senderId": sender,
				"text":     text,
			}
			if threadID != "" {
				params["threadId"] = threadID
			}
			var out struct {
				Message store.ChannelMessage `json:"message"`
			}
			if err := client.Call(protocol.MethodChannelsPost, params, &out); err != nil {
				return err
			}

			fmt.Printf("Posted %s to #%s\n", out.Message.ID, channel)
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "channel name or id")
	cmd.Flags().StringVar(&sender, "as", "investor", "sender id to post as")
	cmd.Flags().StringVar(&threadID, "thread", "", "thread to reply in")
	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
