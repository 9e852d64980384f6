package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Giftwise/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Giftwise"
	AppID             = "com.github.peltran.giftwise"
	KeyringService    = "com.github.peltran.giftwise"
	KeyringAPIKeyUser = "gemini_api_key"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	// Used for creating secure cache directories.
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagPort         = "port"
	FlagContacts     = "contacts"
	FlagLanguage     = "lang"
	FlagModel        = "model"
	FlagAPIKey       = "api-key"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescPort     = "HTTP API listen port"
	FlagDescContacts = "Path or URL of a vCard file to seed the address book"
	FlagDescLanguage = "UI language code (e.g. en, ko)"
	FlagDescModel    = "Generative model identifier"
	FlagDescAPIKey   = "Gemini API key (falls back to GEMINI_API_KEY, then the system keyring)"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// EnvAPIKey is consulted when the -api-key flag is empty.
const EnvAPIKey = "GEMINI_API_KEY"

// SupportedLanguages defines the list of available languages (ISO 639-1).
var SupportedLanguages = []string{"en", "ko"}

// -----------------------------------------------------------------------------
// Relationship & Filter Tokens
// -----------------------------------------------------------------------------

const (
	RelationshipBusiness = "business"
	RelationshipFriend   = "friend"
	RelationshipFamily   = "family"

	FilterAll      = "all"
	FilterUpcoming = "upcomingEvents"
)

// -----------------------------------------------------------------------------
// Date-Window & Recommendation Logic
// -----------------------------------------------------------------------------

const (
	// UpcomingWindowBadgeDays is the lookahead used for list badges and the
	// upcomingEvents filter.
	UpcomingWindowBadgeDays = 7

	// UpcomingWindowPromptDays is the wider lookahead used when building the
	// recommendation prompt context.
	UpcomingWindowPromptDays = 30

	// RecommendationCount is the number of gift suggestions requested per call.
	RecommendationCount = 3

	// DefaultBudget is the pre-selected budget amount (KRW).
	DefaultBudget = 50000
)

// BudgetTiers lists the well-known budget presets (KRW), served on the
// budgets route. Any positive amount is accepted by recommendation calls.
var BudgetTiers = []int{30000, 50000, 100000, 200000}

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort     = "18080"
	DefaultLanguage = "en"
	DefaultLeapYear = 2000           // Leap year fallback for dates like --02-29
	UIDSalt         = "giftwise-v1-" // Salt for deterministic calendar UID generation
	FallbackName    = "Unknown"
)

// -----------------------------------------------------------------------------
// Generative AI (Gemini) Endpoint
// -----------------------------------------------------------------------------

const (
	DefaultGenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGenAIModel   = "gemini-2.5-flash"
	GenAIPathFormat     = "%s/models/%s:generateContent"
	GenAIKeyHeader      = "x-goog-api-key"
	GenAITimeout        = 60 * time.Second
	GenAITemperature    = 0.8
	MimeJSON            = "application/json"
	MimeJPEG            = "image/jpeg"
	MaxGenAIRespSize    = 4 * 1024 * 1024  // Schema-bound JSON only
	MaxImageBytes       = 10 * 1024 * 1024 // Compressed still image cap
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Giftwise//Engine//EN"
	ICalCalName   = "Important Dates"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "giftwise"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	VCardFN          = "FN"
	VCardN           = "N"
	VCardORG         = "ORG"
	VCardBDAY        = "BDAY"
	VCardAnniversary = "ANNIVERSARY"
	VCardXAnniv      = "X-ANNIVERSARY"
	VCardCategories  = "CATEGORIES"
	VCardNote        = "NOTE"

	// AllergyNoteTag marks the line inside a NOTE field that carries the
	// allergy list ("Allergies: shellfish, peanuts").
	AllergyNoteTag = "Allergies:"

	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when no events
	// are found. This prevents clients from flagging the feed as invalid.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// Date layouts used for contact date fields and vCard parsing
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// Limits
	MinPort = 1
	MaxPort = 65535

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s|%s"
	FormatUID       = "%s-%d@%s"

	// File Extensions
	ExtVCF   = ".vcf"
	ExtVCard = ".vcard"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 90 * time.Second // Must cover a full in-handler GenAI round trip
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	MaxHTTPResponseSize = 64 * 1024 * 1024 // 64MB vCard import cap
	MaxRequestBodySize  = 12 * 1024 * 1024 // JSON bodies and raw JPEG uploads
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	AddrSeparator       = ":"
)

// -----------------------------------------------------------------------------
// HTTP Routes
// -----------------------------------------------------------------------------

const (
	RouteContacts      = "/contacts"
	RouteContactsSlash = "/contacts/"
	RouteCalendar      = "/calendar"
	RouteCapture       = "/capture"
	RouteBudgets       = "/budgets"
	SubRouteGifts      = "gifts"
	SubRouteRecommend  = "recommendations"
	QueryParamFilter   = "filter"
	QueryParamCommit   = "commit"
	QueryValueTrue     = "true"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSONUTF8        = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"
	CacheControlNoStore = "no-store"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRequired    = "server port is required"
	ErrPortNumeric     = "server port must be numeric"
	ErrPortRange       = "server port out of range"
	ErrInvalidURL      = "invalid URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrVCardParse      = "failed to parse vCard stream"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrDateParse       = "unable to parse date"
	ErrLogFile         = "failed to open log file"
	ErrCacheDir        = "could not determine user cache dir"
	ErrCreateDir       = "could not create app cache dir"
	ErrAppFailed       = "application failed unexpectedly"
	ErrWriteResp       = "failed to write response body"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrLocNotInit      = "localizer not initialized"
	ErrFetcherMissing  = "internal error: network fetcher is not initialized"
	ErrSeedPathEmpty   = "configuration error: contact source is empty"
	ErrAPIKeyMissing   = "generative AI API key is not configured"
	ErrGenAIRequest    = "generative AI request failed"
	ErrGenAIStatus     = "generative AI returned unexpected status"
	ErrGenAIDecode     = "failed to decode generative AI response"
	ErrGenAIEmpty      = "generative AI response contains no candidates"
	ErrGenAISchema     = "generative AI response does not match requested schema"
	ErrCameraAcquire   = "failed to acquire camera stream"
	ErrCameraCapture   = "failed to capture still image"
	ErrImageEmpty      = "captured image is empty"
	ErrImageTooLarge   = "captured image exceeds size limit"
	ErrExtraction      = "business card extraction failed"
	ErrRecommendation  = "gift recommendation request failed"
	ErrDraftIncomplete = "draft contact is missing required fields"
	ErrContactNotFound = "contact not found"
	ErrContactExists   = "contact id already exists"
	ErrBudgetInvalid   = "budget must be a positive amount"
	ErrWorkflowState   = "operation not permitted in current workflow state"
	ErrWorkflowClosed  = "workflow is closed"
	ErrRelUnknown      = "unknown relationship value"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal Server Error"
	HTTPMsgBadRequest   = "Bad Request"
	HTTPMsgNotFound     = "Not Found"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyRelBusiness = "rel_business"
	TKeyRelFriend   = "rel_friend"
	TKeyRelFamily   = "rel_family"

	TKeyEventBirthday  = "event_birthday"
	TKeyEventPromotion = "event_promotion"
	TKeyEventWedding   = "event_wedding"

	TKeyEvtSummary = "event_summary" // Requires Kind, Name

	TKeyErrCamera     = "err_camera_access"
	TKeyErrExtraction = "err_extraction"
	TKeyErrRecommend  = "err_recommendation"
	TKeyErrRequired   = "err_name_affiliation_required"

	TKeyHistoryNone = "history_none"
)

// -----------------------------------------------------------------------------
// Fallbacks, Log Messages & Defaults
// -----------------------------------------------------------------------------

const (
	FallbackEvtSummary = "%s: %s" // Kind: Name

	MsgAppStarting     = "Starting application"
	MsgAppStop         = "Application stopped gracefully"
	MsgServerListen    = "HTTP server listening"
	MsgServerStop      = "Shutting down HTTP server..."
	MsgCacheUpdated    = "Calendar cache updated"
	MsgSkippedCard     = "Skipping malformed vCard"
	MsgSkippedDate     = "Skipping invalid date format"
	MsgSeedOddExt      = "Contact source has an unusual extension"
	MsgSeedLoaded      = "Seed contacts loaded"
	MsgGenSuccess      = "Calendar generation successful"
	MsgContactAdded    = "Contact committed"
	MsgContactUpdated  = "Contact replaced"
	MsgGiftAppended    = "Gift history entry appended"
	MsgCaptureState    = "Capture workflow transition"
	MsgStreamReleased  = "Camera stream released"
	MsgExtractStart    = "Extraction request started"
	MsgExtractDone     = "Extraction completed"
	MsgRecommendStart  = "Recommendation request started"
	MsgRecommendDone   = "Recommendations applied"
	MsgRecommendStale  = "Recommendation response dropped (superseded)"
	MsgGenAIRepairUsed = "Model JSON repaired before decode"
	MsgLocaleSkip      = "Skipping non-locale file"
	MsgLocaleBadName   = "Skipping malformed locale filename"
	MsgLocaleLoaded    = "Locale loaded successfully"
	MsgTransMissing    = "Missing translation key"
	MsgKeyringMiss     = "API key not found in keyring"
	MsgLogWarning      = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeyID        = "contact_id"
	LogKeyFilter    = "filter"
	LogKeyFrom      = "from"
	LogKeyTo        = "to"
	LogKeyToken     = "token"
	LogKeyBudget    = "budget"
	LogKeyModel     = "model"
	LogKeyDuration  = "duration_ms"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyTotal     = "total_cards"
	LogKeyImported  = "imported"
	LogKeySkipped   = "skipped"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompStore     = "store"
	CompCalendar  = "calendar"
	CompVCard     = "vcard"
	CompGenAI     = "genai"
	CompCapture   = "capture"
	CompRecommend = "recommend"
	CompServer    = "server"
	CompFetcher   = "fetcher"
	CompI18n      = "i18n"
	CompMain      = "main"
)
