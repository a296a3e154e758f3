package domain

import "time"

type Product string

const (
	ProductContigo Product = "Aviva Contigo"
	ProductNegocio Product = "Aviva Tu Negocio"
	ProductCasa    Product = "Aviva Tu Casa"
	ProductCompra  Product = "Aviva Tu Compra"
)

func (p Product) Valid() bool {
	switch p {
	case ProductContigo, ProductNegocio, ProductCasa, ProductCompra:
		return true
	}
	return false
}

type Mode string

const (
	ModeCurioso     Mode = "Curioso"
	ModeDesconfiado Mode = "Desconfiado"
	ModeApurado     Mode = "Apurado"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeCurioso, ModeDesconfiado, ModeApurado:
		return true
	}
	return false
}

type DifficultyLevel string

const (
	DifficultyFacil      DifficultyLevel = "Fácil"
	DifficultyIntermedio DifficultyLevel = "Intermedio"
	DifficultyDificil    DifficultyLevel = "Difícil"
	DifficultyAvanzado   DifficultyLevel = "Avanzado"
	DifficultyEmbajador  DifficultyLevel = "Súper Embajador"
	DifficultyLeyenda    DifficultyLevel = "Leyenda"
)

// DifficultyLevels is ordered from easiest to hardest.
var DifficultyLevels = []DifficultyLevel{
	DifficultyFacil,
	DifficultyIntermedio,
	DifficultyDificil,
	DifficultyAvanzado,
	DifficultyEmbajador,
	DifficultyLeyenda,
}

func (d DifficultyLevel) Valid() bool {
	for _, level := range DifficultyLevels {
		if level == d {
			return true
		}
	}
	return false
}

type Sender string

const (
	SenderUser   Sender = "user"
	SenderAvatar Sender = "avatar"
)

// ConversationMessage is one turn of the practice conversation. Text is
// accumulated in place while IsLoading is set and is immutable afterwards.
type ConversationMessage struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	IsLoading bool      `json:"isLoading,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CustomerProfile is generated once per practice session and never mutated.
type CustomerProfile struct {
	Name            string          `json:"name" validate:"required"`
	Age             int             `json:"age" validate:"gte=18,lte=80"`
	Occupation      string          `json:"occupation" validate:"required"`
	Context         string          `json:"context" validate:"required"`
	Objections      []string        `json:"objections" validate:"min=1,dive,required"`
	CommonQuestions []string        `json:"commonQuestions" validate:"min=1,dive,required"`
	AttitudeTrait   string          `json:"attitudeTrait" validate:"required"`
	DifficultyLevel DifficultyLevel `json:"difficultyLevel"`
}

// PitchEvaluation holds the rubric scores, each on a 1-10 scale.
type PitchEvaluation struct {
	Greeting              int    `json:"greeting" validate:"gte=1,lte=10"`
	NeedIdentification    int    `json:"needIdentification" validate:"gte=1,lte=10"`
	ProductPresentation   int    `json:"productPresentation" validate:"gte=1,lte=10"`
	BenefitsCommunication int    `json:"benefitsCommunication" validate:"gte=1,lte=10"`
	ObjectionHandling     int    `json:"objectionHandling" validate:"gte=1,lte=10"`
	Closing               int    `json:"closing" validate:"gte=1,lte=10"`
	Empathy               int    `json:"empathy" validate:"gte=1,lte=10"`
	Clarity               int    `json:"clarity" validate:"gte=1,lte=10"`
	OverallScore          int    `json:"overallScore" validate:"gte=1,lte=10"`
	Feedback              string `json:"feedback" validate:"required"`
}

type PracticeSettings struct {
	Product         Product         `json:"product"`
	Mode            Mode            `json:"mode"`
	DifficultyLevel DifficultyLevel `json:"difficultyLevel"`
	PitchDuration   int             `json:"pitchDuration"`
	QnaDuration     int             `json:"qnaDuration"`
	VoiceMode       bool            `json:"voiceMode"`
}

type GroupNumber int

// StarRating is a single (user, group) fact; the store keys it by a
// deterministic composite id so a second write overwrites the first.
type StarRating struct {
	UserID      string      `json:"userId"`
	GroupNumber GroupNumber `json:"groupNumber"`
	Stars       int         `json:"stars"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type WordCloudEntry struct {
	UserID      string      `json:"userId"`
	GroupNumber GroupNumber `json:"groupNumber"`
	Word        string      `json:"word"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type VotingConfig struct {
	IsOpen    bool       `json:"isOpen"`
	OpenTime  *time.Time `json:"openTime,omitempty"`
	CloseTime *time.Time `json:"closeTime,omitempty"`
}

// Effective reports whether voting is accepting writes at the given time,
// honoring a scheduled close time.
func (v VotingConfig) Effective(now time.Time) bool {
	if !v.IsOpen {
		return false
	}
	if v.CloseTime != nil && now.After(*v.CloseTime) {
		return false
	}
	return true
}
