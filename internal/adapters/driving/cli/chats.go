package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Manage stored conversations",
}

var chatsNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChatsNew,
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Args:  cobra.NoArgs,
	RunE:  runChatsList,
}

var chatsShowCmd = &cobra.Command{
	Use:   "show [chat-id]",
	Short: "Print a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatsShow,
}

var chatsRenameCmd = &cobra.Command{
	Use:   "rename [chat-id] [title]",
	Short: "Rename a conversation",
	Args:  cobra.ExactArgs(2),
	RunE:  runChatsRename,
}

var chatsDeleteCmd = &cobra.Command{
	Use:   "delete [chat-id]",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatsDelete,
}

func init() {
	chatsCmd.AddCommand(chatsNewCmd, chatsListCmd, chatsShowCmd, chatsRenameCmd, chatsDeleteCmd)
	rootCmd.AddCommand(chatsCmd)
}

func runChatsNew(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return fmt.Errorf("chat service not configured: %w", domain.ErrStoreUnavailable)
	}

	title := ""
	if len(args) > 0 {
		title = args[0]
	}

	chat, err := chatService.CreateChat(context.Background(), title)
	if err != nil {
		return fmt.Errorf("creating chat: %w", err)
	}
	cmd.Printf("Created chat %s (%q)\n", chat.ID, chat.Title)
	return nil
}

func runChatsList(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return fmt.Errorf("chat service not configured: %w", domain.ErrStoreUnavailable)
	}

	chats, err := chatService.ListChats(context.Background())
	if err != nil {
		return fmt.Errorf("listing chats: %w", err)
	}

	if len(chats) == 0 {
		cmd.Println("No conversations.")
		return nil
	}
	for _, chat := range chats {
		cmd.Printf("%s  %s (%d messages, %s)\n",
			chat.ID, chat.Title, chat.MessageCount, chat.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runChatsShow(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return fmt.Errorf("chat service not configured: %w", domain.ErrStoreUnavailable)
	}

	chat, err := chatService.GetChat(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("getting chat: %w", err)
	}

	cmd.Printf("%s\n\n", chat.Title)
	for _, msg := range chat.Messages {
		cmd.Printf("[%s] %s\n\n", msg.Role, msg.Content)
	}
	return nil
}

func runChatsRename(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return fmt.Errorf("chat service not configured: %w", domain.ErrStoreUnavailable)
	}

	chat, err := chatService.RenameChat(context.Background(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("renaming chat: %w", err)
	}
	cmd.Printf("Renamed to %q\n", chat.Title)
	return nil
}

func runChatsDelete(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return fmt.Errorf("chat service not configured: %w", domain.ErrStoreUnavailable)
	}

	if err := chatService.DeleteChat(context.Background(), args[0]); err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	cmd.Println("Deleted.")
	return nil
}
