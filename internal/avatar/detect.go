package avatar

import (
	"net/http"
	"strings"
)

// detectImageType はデータ先頭のマジックバイトからMIMEタイプを判定する。
// Content-Typeヘッダは偽装できるため信頼しない。
func detectImageType(data []byte) string {
	return http.DetectContentType(data)
}

// isImage はデータが画像かどうかを判定する。
func isImage(data []byte) bool {
	return strings.HasPrefix(detectImageType(data), "image/")
}
