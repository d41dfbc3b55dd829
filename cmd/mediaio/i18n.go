// Package main provides localization for the mediaio CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Configuration": "設定",
		"Logging":       "ログ",

		// Root command
		"Decode media files and test patterns":                                             "メディアファイルとテストパターンをデコード",
		"mediaio opens media through reader plugins and decodes frames in the background.": "mediaioはリーダープラグインでメディアを開き、バックグラウンドでフレームをデコードします。",

		// Global flags
		"Path to YAML config file":             "YAML設定ファイルのパス",
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "全てのログ出力を抑制",

		// Info command
		"Show stream information":                        "ストリーム情報を表示",
		"%s (%s)":                                        "%s (%s)",
		"Duration: %s":                                   "再生時間: %s",
		"Frame rate: %.3f fps":                           "フレームレート: %.3f fps",
		"Video #%d: %s %dx%d, time base %s":              "映像 #%d: %s %dx%d, タイムベース %s",
		"Audio #%d: %s %d Hz, %d channels, time base %s": "音声 #%d: %s %d Hz, %d チャンネル, タイムベース %s",

		// Play command
		"Decode a source and report what was presented":                 "ソースをデコードし、表示したフレームを報告",
		"Start position (e.g., 1.5, 250ms, 1m3s)":                       "開始位置（例: 1.5, 250ms, 1m3s）",
		"Pace playback by the wall clock":                               "実時間に合わせて再生",
		"Playback rate in realtime mode":                                "実時間モードでの再生速度",
		"Stop after this many video frames (0 = all)":                   "指定した映像フレーム数で停止（0 = 全て）",
		"Played %d video frames and %d audio frames (%d samples) in %s": "映像 %d フレーム、音声 %d フレーム（%d サンプル）を %s で再生しました",
		"Directory for stream info and presented frames":                "ストリーム情報と表示フレームの出力先",
		"Video from %s to %s":                                           "映像 %s から %s まで",

		// Thumb command
		"Write PNG thumbnails of the first frame":                 "先頭フレームのPNGサムネイルを出力",
		"Longest thumbnail side in pixels (default: from config)": "サムネイルの長辺（ピクセル、デフォルト: 設定値）",
		"Output directory":                                        "出力ディレクトリ",
		"Thumbnail size must be positive":                         "サムネイルサイズは正の値が必要です",
		"Wrote %s (%dx%d)":                                        "%s を書き出しました (%dx%d)",
		"%d of %d thumbnails failed":                              "%d / %d 件のサムネイルが失敗しました",

		// Plugins command
		"List reader plugins": "リーダープラグインを一覧表示",

		// Version command
		"Show version information": "バージョン情報を表示",
		"mediaio version %s":       "mediaio バージョン %s",

		// Runtime messages
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",

		// Error messages
		"At least one path is required": "パスを1つ以上指定してください",
		"Exactly one path is required":  "パスを1つだけ指定してください",
	})
}
