package game

// Settings 在创建房间时一次性填好默认值，读取方不再各自兜底
// 时间单位均为秒
type Settings struct {
	Category       string `json:"category"`
	Language       string `json:"language"`
	NumImpostors   int    `json:"numImpostors"`
	ClueTime       int    `json:"clueTime"`
	DiscussionTime int    `json:"discussionTime"`
	VotingTime     int    `json:"votingTime"`
	VotesPerPlayer int    `json:"votesPerPlayer"`

	ShowTimer         bool `json:"showTimer"`
	AutoEndDiscussion bool `json:"autoEndDiscussion"`
}

const (
	DEFAULT_CATEGORY         = "food"
	DEFAULT_LANGUAGE         = "en"
	DEFAULT_NUM_IMPOSTORS    = 1
	DEFAULT_CLUE_TIME        = 30
	DEFAULT_DISCUSSION_TIME  = 60
	DEFAULT_VOTING_TIME      = 45
	DEFAULT_VOTES_PER_PLAYER = 1
)

func DefaultSettings() Settings {
	return Settings{
		Category:          DEFAULT_CATEGORY,
		Language:          DEFAULT_LANGUAGE,
		NumImpostors:      DEFAULT_NUM_IMPOSTORS,
		ClueTime:          DEFAULT_CLUE_TIME,
		DiscussionTime:    DEFAULT_DISCUSSION_TIME,
		VotingTime:        DEFAULT_VOTING_TIME,
		VotesPerPlayer:    DEFAULT_VOTES_PER_PLAYER,
		ShowTimer:         true,
		AutoEndDiscussion: true,
	}
}

// SettingsPatch 只包含需要修改的字段，nil 表示保持不变
type SettingsPatch struct {
	Category       *string `json:"category,omitempty"`
	Language       *string `json:"language,omitempty"`
	NumImpostors   *int    `json:"numImpostors,omitempty"`
	ClueTime       *int    `json:"clueTime,omitempty"`
	DiscussionTime *int    `json:"discussionTime,omitempty"`
	VotingTime     *int    `json:"votingTime,omitempty"`
	VotesPerPlayer *int    `json:"votesPerPlayer,omitempty"`

	ShowTimer         *bool `json:"showTimer,omitempty"`
	AutoEndDiscussion *bool `json:"autoEndDiscussion,omitempty"`
}

func (sp SettingsPatch) IsEmpty() bool {
	return sp == SettingsPatch{}
}

// Merge 把补丁合并进设置，不做范围校验
func (s Settings) Merge(sp SettingsPatch) Settings {
	if sp.Category != nil {
		s.Category = *sp.Category
	}
	if sp.Language != nil {
		s.Language = *sp.Language
	}
	if sp.NumImpostors != nil {
		s.NumImpostors = *sp.NumImpostors
	}
	if sp.ClueTime != nil {
		s.ClueTime = *sp.ClueTime
	}
	if sp.DiscussionTime != nil {
		s.DiscussionTime = *sp.DiscussionTime
	}
	if sp.VotingTime != nil {
		s.VotingTime = *sp.VotingTime
	}
	if sp.VotesPerPlayer != nil {
		s.VotesPerPlayer = *sp.VotesPerPlayer
	}
	if sp.ShowTimer != nil {
		s.ShowTimer = *sp.ShowTimer
	}
	if sp.AutoEndDiscussion != nil {
		s.AutoEndDiscussion = *sp.AutoEndDiscussion
	}

	return s
}

// ImpostorCount 按玩家人数钳制内鬼数量：1..floor(players/3)
func ImpostorCount(requested, players int) int {
	return clamp(requested, 1, max(1, players/3))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
