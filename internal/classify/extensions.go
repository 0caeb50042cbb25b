package classify

var extensionCategories = map[string][]string{
	"Documents":  {".pdf", ".doc", ".docx", ".txt", ".rtf", ".odt", ".xls", ".xlsx", ".ppt", ".pptx"},
	"Pictures":   {".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".svg", ".heic", ".ico"},
	"Videos":     {".mp4", ".avi", ".mkv", ".mov", ".wmv", ".webm", ".flv", ".m4v"},
	"Music":      {".mp3", ".wav", ".flac", ".aac", ".ogg", ".m4a", ".wma"},
	"Archives":   {".zip", ".rar", ".7z", ".tar", ".gz", ".bz2", ".xz"},
	"Installers": {".exe", ".msi", ".dmg", ".deb", ".rpm", ".appimage"},
	"Code":       {".py", ".js", ".ts", ".html", ".css", ".java", ".cpp", ".c", ".go", ".rs", ".rb"},
}

// extensionTable maps a lower-cased extension to its category folder.
var extensionTable = func() map[string]string {
	table := make(map[string]string)
	for category, exts := range extensionCategories {
		for _, ext := range exts {
			table[ext] = category
		}
	}
	return table
}()

// CategoryForExtension returns the built-in category for ext.
func CategoryForExtension(ext string) (string, bool) {
	category, ok := extensionTable[normalizeExtension(ext)]
	return category, ok
}
