package protocol

// IsPrintable 单字节是否为可打印 ASCII
func IsPrintable(c byte) bool {
	return c >= 0x20 && c <= 0x7e
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if !IsPrintable(s[i]) {
			return false
		}
	}
	return true
}

// ValidName 名字非空、不超过 MaxNameLen 且全部可打印
func ValidName(name string) bool {
	return len(name) > 0 && len(name) <= MaxNameLen && printable(name)
}

// ValidChat 聊天内容非空、不超过 MaxChatLen 且全部可打印
func ValidChat(text string) bool {
	return len(text) > 0 && len(text) <= MaxChatLen && printable(text)
}
