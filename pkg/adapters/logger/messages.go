package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Inspecting %s":                 "%s を検査中",
		"Estimated duration: %s":        "推定再生時間: %s",
		"Decoding %s":                   "%s をデコード中",
		"Decoded %d frames":             "%d フレームをデコードしました",
		"Interrupted, shutting down...": "中断されました。終了しています...",

		// Orchestration level messages (warn, error)
		"Duration of %s is unknown":              "%s の再生時間は不明です",
		"Duration of %s estimated from bit rate": "%s の再生時間はビットレートから推定されました",
		"Failed to probe %s: %s":                 "%s の解析に失敗しました: %s",
		"Failed to decode %s: %s":                "%s のデコードに失敗しました: %s",
		"Failed to render contact sheet: %s":     "コンタクトシートの描画に失敗しました: %s",

		// Probe and codec identification (debug)
		"Probe failed: %s":      "解析に失敗しました: %s",
		"Probed %s: %s %dx%d":   "%s を解析しました: %s %dx%d",
		"No video stream in %s": "%s に映像ストリームがありません",
		"Matched %s by tag %q":  "%s をタグ %q で判定しました",

		// Duration estimation (debug)
		"Fast duration of %s from %s: %.3fs":            "%s の高速推定 (%s): %.3f秒",
		"Precise duration of %s from last timestamp %d": "%s の精密推定: 最終タイムスタンプ %d",
		"No timestamp within %.0fs window":              "%.0f秒の範囲にタイムスタンプがありません",
		"Seek to end failed: %s":                        "末尾へのシークに失敗しました: %s",
		"Step back to %d failed: %s":                    "%d への後退に失敗しました: %s",
		"Read stopped: %s":                              "読み込みを停止しました: %s",

		// Decode session (debug)
		"Session %s opened %s: %s %dx%d, time base %d/%d": "セッション %s が %s を開きました: %s %dx%d, タイムベース %d/%d",
		"Session %s reached end of input":                 "セッション %s が入力の終端に達しました",
		"Session %s drained after %d frames":              "セッション %s は %d フレームで出力を終えました",
		"Session %s closed after %d frames":               "セッション %s を %d フレームで閉じました",
		"Decoded %d frames of %s":                         "%d フレームをデコードしました (%s)",

		// Contact sheet
		"Compositing %d thumbnails with %d workers":    "%d 枚のサムネイルを %d ワーカーで合成中",
		"Composition completed":                        "合成が完了しました",
		"Contact sheet rendered: %dx%d, %d thumbnails": "コンタクトシートを描画しました: %dx%d, サムネイル %d 枚",

		// Report labels
		"Inspection Summary":       "検査サマリー",
		"Generated":                "生成日時",
		"Generated by":             "生成",
		"Item":                     "項目",
		"Value":                    "値",
		"Error":                    "エラー",
		"Container":                "コンテナ",
		"Format":                   "フォーマット",
		"Duration":                 "再生時間",
		"Bit Rate":                 "ビットレート",
		"File Size":                "ファイルサイズ",
		"Size":                     "サイズ",
		"Streams":                  "ストリーム数",
		"Video":                    "映像",
		"Video Stream":             "映像ストリーム",
		"No video stream":          "映像ストリームなし",
		"Index":                    "インデックス",
		"Tag":                      "タグ",
		"Pixel Format":             "ピクセルフォーマット",
		"Time Base":                "タイムベース",
		"Frame Count":              "フレーム数",
		"Frame Rate":               "フレームレート",
		"Average Frame Rate":       "平均フレームレート",
		"Duration Estimates":       "再生時間の推定",
		"Fast":                     "高速",
		"Frame Accurate":           "フレーム精度",
		"Format Only":              "コンテナのみ",
		"Precise":                  "精密",
		"Codec":                    "コーデック",
		"Codec Identification":     "コーデック判定",
		"Target":                   "対象",
		"Verdict":                  "判定",
		"Decode":                   "デコード",
		"Decoded Frames":           "デコード済みフレーム",
		"First Timestamp":          "最初のタイムスタンプ",
		"Last Timestamp":           "最後のタイムスタンプ",
		"Frames Without Timestamp": "タイムスタンプなしのフレーム",
		"Saved Frames":             "保存したフレーム",
		"Output Size":              "出力サイズ",
		"Contact Sheet":            "コンタクトシート",
		"Unknown":                  "不明",
		"Yes":                      "はい",
		"No":                       "いいえ",
	})
}
