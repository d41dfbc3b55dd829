package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Registry
		"Registered plugin %s":            "プラグイン %s を登録しました",
		"Opening %s with %s as reader %s": "%s を %s で開きます (リーダー %s)",

		// Reader worker
		"Opened %s: %d video, %d audio streams":      "%s を開きました: 映像 %d, 音声 %d ストリーム",
		"Seeked to %s":                               "%s へシークしました",
		"Seek target %s out of range, clamped to %s": "シーク位置 %s は範囲外のため %s に制限しました",
		"Ignoring seek to %s: reader stopped":        "リーダー停止済みのため %s へのシークを無視します",
		"End of source reached":                      "ソースの終端に達しました",

		// Playback
		"Presented frame at %s":                        "%s のフレームを表示しました",
		"Frame limit %d reached":                       "フレーム上限 %d に達しました",
		"Playback finished: %d video, %d audio frames": "再生完了: 映像 %d, 音声 %d フレーム",

		// Request cache and thumbnails
		"Cache usage: %.1f%%":         "キャッシュ使用率: %.1f%%",
		"Fetching thumbnail %s at %d": "%s のサムネイルを %d で取得中",

		// Warnings
		"Skipping unreadable unit: %v":       "読み取れないユニットをスキップします: %v",
		"Skipping corrupt %s unit at %s: %v": "破損した%sユニット (%s) をスキップします: %v",
		"Dropping %s frame: %v":              "%sフレームを破棄します: %v",

		// Errors
		"Failed to open source: %v":            "ソースを開けませんでした: %v",
		"Source has no video or audio streams": "ソースに映像・音声ストリームがありません",
		"Seek failed: %v":                      "シークに失敗しました: %v",
		"Read failed: %v":                      "読み込みに失敗しました: %v",
		"Fetch failed for %v: %v":              "%v の取得に失敗しました: %v",
		"Thumbnail failed: %v":                 "サムネイルの作成に失敗しました: %v",
	})
}
