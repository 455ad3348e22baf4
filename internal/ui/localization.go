package ui

import (
	"os"
	"strings"

	"golang.org/x/text/language"

	"github.com/ytget/synqed/internal/model"
)

// Localization manages UI text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys for localization
const (
	KeyAppTitle           = "app_title"
	KeyAdd                = "add"
	KeyImport             = "import"
	KeySettings           = "settings"
	KeyFile               = "file"
	KeyLanguage           = "language"
	KeyEnterURL           = "enter_url"
	KeyQueue              = "queue"
	KeyHistory            = "history"
	KeyLibrary            = "library"
	KeyClearQueue         = "clear_queue"
	KeyClearHistory       = "clear_history"
	KeyRemove             = "remove"
	KeyLogs               = "logs"
	KeyReveal             = "reveal"
	KeyPlay               = "play"
	KeySearch             = "search"
	KeyEmptyQueue         = "empty_queue"
	KeyEmptyHistory       = "empty_history"
	KeyEmptyLibrary       = "empty_library"
	KeyFetchingMetadata   = "fetching_metadata"
	KeyAddedTracks        = "added_tracks"
	KeyImportFinished     = "import_finished"
	KeyDownloadCompleted  = "download_completed"
	KeyDownloadFailed     = "download_failed"
	KeyStartFailed        = "start_failed"
	KeyInvalidURL         = "invalid_url"
	KeyPleaseEnterURL     = "please_enter_url"
	KeyLibraryPath        = "library_path"
	KeyBrowse             = "browse"
	KeyAutoUpdate         = "auto_update"
	KeyNotifyOnComplete   = "notify_on_complete"
	KeySave               = "save"
	KeyCancel             = "cancel"
	KeySettingsSaved      = "settings_saved"
	KeySetupTitle         = "setup_title"
	KeySetupIntro         = "setup_intro"
	KeyStartSetup         = "start_setup"
	KeyFactoryReset       = "factory_reset"
	KeyFactoryResetPrompt = "factory_reset_prompt"
	KeyCheckHealth        = "check_health"
	KeyHealthy            = "healthy"
	KeyUnhealthy          = "unhealthy"
	KeyVersions           = "versions"
	KeyStatusQueued       = "status_queued"
	KeyStatusPending      = "status_pending"
	KeyStatusDownloading  = "status_downloading"
	KeyStatusCompleted    = "status_completed"
	KeyStatusError        = "status_error"
)

// supported lists the translated languages; the first one is the fallback
var supported = []language.Tag{language.English, language.Russian, language.Portuguese}

var supportedCodes = []string{"en", "ru", "pt"}

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: "en",
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language. "system" picks the closest match
// for the locale environment.
func (l *Localization) SetLanguage(lang string) {
	if lang == "system" {
		lang = systemLanguage()
	}

	if _, exists := l.texts[lang]; exists {
		l.currentLanguage = lang
	}
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	if texts, exists := l.texts["en"]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	return key
}

// StatusText returns the localized name of a job status
func (l *Localization) StatusText(status model.JobStatus) string {
	switch status {
	case model.StatusQueued:
		return l.GetText(KeyStatusQueued)
	case model.StatusPending:
		return l.GetText(KeyStatusPending)
	case model.StatusDownloading:
		return l.GetText(KeyStatusDownloading)
	case model.StatusCompleted:
		return l.GetText(KeyStatusCompleted)
	case model.StatusError:
		return l.GetText(KeyStatusError)
	}
	return status.String()
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		"en": "English",
		"ru": "Русский",
		"pt": "Português",
	}
}

// systemLanguage maps LC_ALL, LC_MESSAGES or LANG onto a supported code
func systemLanguage() string {
	matcher := language.NewMatcher(supported)
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := os.Getenv(env)
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}
		if i := strings.IndexAny(value, ".@"); i >= 0 {
			value = value[:i]
		}
		tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
		if err != nil {
			continue
		}
		if _, idx, conf := matcher.Match(tag); conf != language.No {
			return supportedCodes[idx]
		}
	}
	return supportedCodes[0]
}

// initializeTexts initializes all text translations
func (l *Localization) initializeTexts() {
	l.texts["en"] = map[string]string{
		KeyAppTitle:           "Synqed",
		KeyAdd:                "Add",
		KeyImport:             "Import…",
		KeySettings:           "Settings",
		KeyFile:               "File",
		KeyLanguage:           "Language",
		KeyEnterURL:           "Paste a track or playlist link",
		KeyQueue:              "Queue",
		KeyHistory:            "History",
		KeyLibrary:            "Library",
		KeyClearQueue:         "Clear queue",
		KeyClearHistory:       "Clear history",
		KeyRemove:             "Remove",
		KeyLogs:               "Logs",
		KeyReveal:             "Show in folder",
		KeyPlay:               "Play",
		KeySearch:             "Search songs",
		KeyEmptyQueue:         "Nothing is downloading",
		KeyEmptyHistory:       "No finished downloads",
		KeyEmptyLibrary:       "Your library is empty",
		KeyFetchingMetadata:   "Fetching track information…",
		KeyAddedTracks:        "%d added, %d skipped",
		KeyImportFinished:     "%d added, %d skipped, %d failed",
		KeyDownloadCompleted:  "Download completed",
		KeyDownloadFailed:     "Download failed",
		KeyStartFailed:        "Could not start download",
		KeyInvalidURL:         "Invalid URL",
		KeyPleaseEnterURL:     "Please enter a URL",
		KeyLibraryPath:        "Library folder",
		KeyBrowse:             "Browse",
		KeyAutoUpdate:         "Keep yt-dlp up to date",
		KeyNotifyOnComplete:   "Notify when a download completes",
		KeySave:               "Save",
		KeyCancel:             "Cancel",
		KeySettingsSaved:      "Settings saved",
		KeySetupTitle:         "Welcome to Synqed",
		KeySetupIntro:         "Choose a folder for your music library.",
		KeyStartSetup:         "Set up",
		KeyFactoryReset:       "Factory reset",
		KeyFactoryResetPrompt: "Forget the library and all settings?",
		KeyCheckHealth:        "Check tools",
		KeyHealthy:            "yt-dlp and ffmpeg are available",
		KeyUnhealthy:          "yt-dlp or ffmpeg is missing",
		KeyVersions:           "yt-dlp %s, ffmpeg %s",
		KeyStatusQueued:       "Queued",
		KeyStatusPending:      "Starting",
		KeyStatusDownloading:  "Downloading",
		KeyStatusCompleted:    "Completed",
		KeyStatusError:        "Error",
	}

	l.texts["ru"] = map[string]string{
		KeyAppTitle:           "Synqed",
		KeyAdd:                "Добавить",
		KeyImport:             "Импорт…",
		KeySettings:           "Настройки",
		KeyFile:               "Файл",
		KeyLanguage:           "Язык",
		KeyEnterURL:           "Вставьте ссылку на трек или плейлист",
		KeyQueue:              "Очередь",
		KeyHistory:            "История",
		KeyLibrary:            "Библиотека",
		KeyClearQueue:         "Очистить очередь",
		KeyClearHistory:       "Очистить историю",
		KeyRemove:             "Удалить",
		KeyLogs:               "Журнал",
		KeyReveal:             "Показать в папке",
		KeyPlay:               "Играть",
		KeySearch:             "Поиск песен",
		KeyEmptyQueue:         "Ничего не загружается",
		KeyEmptyHistory:       "Нет завершённых загрузок",
		KeyEmptyLibrary:       "Библиотека пуста",
		KeyFetchingMetadata:   "Получение информации о треке…",
		KeyAddedTracks:        "добавлено: %d, пропущено: %d",
		KeyImportFinished:     "добавлено: %d, пропущено: %d, ошибок: %d",
		KeyDownloadCompleted:  "Загрузка завершена",
		KeyDownloadFailed:     "Ошибка загрузки",
		KeyStartFailed:        "Не удалось начать загрузку",
		KeyInvalidURL:         "Неверный URL",
		KeyPleaseEnterURL:     "Введите URL",
		KeyLibraryPath:        "Папка библиотеки",
		KeyBrowse:             "Обзор",
		KeyAutoUpdate:         "Обновлять yt-dlp автоматически",
		KeyNotifyOnComplete:   "Уведомлять о завершении загрузки",
		KeySave:               "Сохранить",
		KeyCancel:             "Отмена",
		KeySettingsSaved:      "Настройки сохранены",
		KeySetupTitle:         "Добро пожаловать в Synqed",
		KeySetupIntro:         "Выберите папку для музыкальной библиотеки.",
		KeyStartSetup:         "Настроить",
		KeyFactoryReset:       "Сброс настроек",
		KeyFactoryResetPrompt: "Забыть библиотеку и все настройки?",
		KeyCheckHealth:        "Проверить инструменты",
		KeyHealthy:            "yt-dlp и ffmpeg доступны",
		KeyUnhealthy:          "yt-dlp или ffmpeg не найден",
		KeyVersions:           "yt-dlp %s, ffmpeg %s",
		KeyStatusQueued:       "В очереди",
		KeyStatusPending:      "Запуск",
		KeyStatusDownloading:  "Загрузка",
		KeyStatusCompleted:    "Готово",
		KeyStatusError:        "Ошибка",
	}

	l.texts["pt"] = map[string]string{
		KeyAppTitle:           "Synqed",
		KeyAdd:                "Adicionar",
		KeyImport:             "Importar…",
		KeySettings:           "Configurações",
		KeyFile:               "Arquivo",
		KeyLanguage:           "Idioma",
		KeyEnterURL:           "Cole o link de uma faixa ou playlist",
		KeyQueue:              "Fila",
		KeyHistory:            "Histórico",
		KeyLibrary:            "Biblioteca",
		KeyClearQueue:         "Limpar fila",
		KeyClearHistory:       "Limpar histórico",
		KeyRemove:             "Remover",
		KeyLogs:               "Registros",
		KeyReveal:             "Mostrar na pasta",
		KeyPlay:               "Tocar",
		KeySearch:             "Buscar músicas",
		KeyEmptyQueue:         "Nada sendo baixado",
		KeyEmptyHistory:       "Nenhum download concluído",
		KeyEmptyLibrary:       "Sua biblioteca está vazia",
		KeyFetchingMetadata:   "Obtendo informações da faixa…",
		KeyAddedTracks:        "%d adicionadas, %d ignoradas",
		KeyImportFinished:     "%d adicionadas, %d ignoradas, %d com erro",
		KeyDownloadCompleted:  "Download concluído",
		KeyDownloadFailed:     "Falha no download",
		KeyStartFailed:        "Não foi possível iniciar o download",
		KeyInvalidURL:         "URL inválida",
		KeyPleaseEnterURL:     "Por favor, insira uma URL",
		KeyLibraryPath:        "Pasta da biblioteca",
		KeyBrowse:             "Procurar",
		KeyAutoUpdate:         "Manter o yt-dlp atualizado",
		KeyNotifyOnComplete:   "Notificar quando um download terminar",
		KeySave:               "Salvar",
		KeyCancel:             "Cancelar",
		KeySettingsSaved:      "Configurações salvas",
		KeySetupTitle:         "Bem-vindo ao Synqed",
		KeySetupIntro:         "Escolha uma pasta para sua biblioteca de músicas.",
		KeyStartSetup:         "Configurar",
		KeyFactoryReset:       "Restaurar padrões",
		KeyFactoryResetPrompt: "Esquecer a biblioteca e todas as configurações?",
		KeyCheckHealth:        "Verificar ferramentas",
		KeyHealthy:            "yt-dlp e ffmpeg estão disponíveis",
		KeyUnhealthy:          "yt-dlp ou ffmpeg não encontrado",
		KeyVersions:           "yt-dlp %s, ffmpeg %s",
		KeyStatusQueued:       "Na fila",
		KeyStatusPending:      "Iniciando",
		KeyStatusDownloading:  "Baixando",
		KeyStatusCompleted:    "Concluído",
		KeyStatusError:        "Erro",
	}
}
