package domain

import "fmt"

// Group-facing replies
const (
	ReplyNoPermission   = "无权限：仅管理员可执行 /ban。"
	ReplyBotLacksAdmin  = "Bot 无管理员权限，已暂停踢人/警告。"
	ReplyRemoved        = "已移出群组。"
	ReplyKickedForWarns = "已因多次警告移出群组。"
)

// UsageReply explains the ban command for the given bot name
func UsageReply(botName string) string {
	return fmt.Sprintf("用法：回复目标消息发送 /ban@%s 或 /ban@%s <uuid/号码>。", botName, botName)
}

// KickFailedReply reports a failed removal
func KickFailedReply(err error) string {
	return fmt.Sprintf("踢人失败：%v", err)
}
