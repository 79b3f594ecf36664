// Package main provides localization for the framepump CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Engine selection
		"FFmpeg engine is not compiled in, using the mp4 engine": "FFmpegエンジンが組み込まれていないため、mp4エンジンを使用します",

		// Probe command
		"Report saved to %s":                        "レポートを %s に保存しました",
		"%d of %d files could not be inspected":     "%d / %d 件のファイルを検査できませんでした",
		"Frame rate of %s is unknown":               "%s のフレームレートは不明です",
		"Could not identify the codec of %s":        "%s のコーデックを判定できませんでした",
		"--every and --contact-sheet require --out": "--every と --contact-sheet には --out が必要です",

		// Version command
		"framepump version %s": "framepump バージョン %s",
	})
}
