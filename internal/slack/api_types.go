package slack

// envelope is embedded by every web API response.
type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// responseMetadata carries the pagination cursor.
type responseMetadata struct {
	NextCursor string `json:"next_cursor"`
}

// apiConversation is a conversation as returned by conversations.list and
// conversations.info. Counts are pointers so an omitted field stays nil.
type apiConversation struct {
	ID                 string `json:"id"`
	Name               string `json:"name,omitempty"`
	IsChannel          bool   `json:"is_channel"`
	IsGroup            bool   `json:"is_group"`
	IsIM               bool   `json:"is_im"`
	IsMPIM             bool   `json:"is_mpim"`
	IsPrivate          bool   `json:"is_private"`
	IsArchived         bool   `json:"is_archived"`
	IsMember           *bool  `json:"is_member,omitempty"`
	User               string `json:"user,omitempty"`
	LastRead           string `json:"last_read,omitempty"`
	UnreadCount        *int   `json:"unread_count,omitempty"`
	UnreadCountDisplay *int   `json:"unread_count_display,omitempty"`
}

func (a apiConversation) toConversation() Conversation {
	isMember := true
	if a.IsMember != nil {
		isMember = *a.IsMember
	}
	return Conversation{
		ID:                 a.ID,
		Name:               a.Name,
		IsChannel:          a.IsChannel,
		IsGroup:            a.IsGroup,
		IsIM:               a.IsIM,
		IsMPIM:             a.IsMPIM,
		IsPrivate:          a.IsPrivate,
		IsArchived:         a.IsArchived,
		IsMember:           isMember,
		User:               a.User,
		LastRead:           a.LastRead,
		UnreadCount:        a.UnreadCount,
		UnreadCountDisplay: a.UnreadCountDisplay,
	}
}

// ConversationsListResponse is the response from conversations.list.
type ConversationsListResponse struct {
	envelope
	Channels         []apiConversation `json:"channels"`
	ResponseMetadata responseMetadata  `json:"response_metadata"`
}

// ConversationInfoResponse is the response from conversations.info.
type ConversationInfoResponse struct {
	envelope
	Channel apiConversation `json:"channel"`
}

type apiReaction struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Users []string `json:"users,omitempty"`
}

type apiAttachment struct {
	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// apiMessage is a message from history, replies, chat.postMessage or search.
type apiMessage struct {
	TS          string          `json:"ts"`
	Text        string          `json:"text"`
	User        string          `json:"user,omitempty"`
	ThreadTS    string          `json:"thread_ts,omitempty"`
	ReplyCount  *int            `json:"reply_count,omitempty"`
	Reactions   []apiReaction   `json:"reactions,omitempty"`
	Attachments []apiAttachment `json:"attachments,omitempty"`
}

func (a apiMessage) toMessage() Message {
	msg := Message{
		TS:         a.TS,
		Text:       a.Text,
		User:       a.User,
		ThreadTS:   a.ThreadTS,
		ReplyCount: a.ReplyCount,
	}
	for _, r := range a.Reactions {
		msg.Reactions = append(msg.Reactions, Reaction{Name: r.Name, Count: r.Count, Users: r.Users})
	}
	for _, at := range a.Attachments {
		msg.Attachments = append(msg.Attachments, Attachment{Title: at.Title, Text: at.Text, Fallback: at.Fallback})
	}
	return msg
}

// HistoryResponse is the response from conversations.history and
// conversations.replies.
type HistoryResponse struct {
	envelope
	Messages         []apiMessage     `json:"messages"`
	HasMore          bool             `json:"has_more"`
	ResponseMetadata responseMetadata `json:"response_metadata"`
}

// PostMessageResponse is the response from chat.postMessage.
type PostMessageResponse struct {
	envelope
	Channel string     `json:"channel"`
	TS      string     `json:"ts"`
	Message apiMessage `json:"message"`
}

// OpenConversationResponse is the response from conversations.open.
type OpenConversationResponse struct {
	envelope
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

// searchMatch is a search hit; the channel arrives as a nested object.
type searchMatch struct {
	apiMessage
	Channel struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"channel"`
}

// SearchResponse is the response from search.messages.
type SearchResponse struct {
	envelope
	Messages struct {
		Matches []searchMatch `json:"matches"`
		Total   int           `json:"total"`
		Paging  struct {
			Count int `json:"count"`
			Total int `json:"total"`
			Page  int `json:"page"`
			Pages int `json:"pages"`
		} `json:"paging"`
	} `json:"messages"`
}

type apiProfile struct {
	DisplayName string `json:"display_name"`
	RealName    string `json:"real_name"`
}

type apiUser struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	RealName string     `json:"real_name"`
	IsBot    bool       `json:"is_bot"`
	Profile  apiProfile `json:"profile"`
}

func (a apiUser) toUser() *User {
	realName := a.RealName
	if realName == "" {
		realName = a.Profile.RealName
	}
	return &User{
		ID:          a.ID,
		Name:        a.Name,
		RealName:    realName,
		DisplayName: a.Profile.DisplayName,
		IsBot:       a.IsBot,
	}
}

// UserInfoResponse is the response from users.info for a single user.
type UserInfoResponse struct {
	envelope
	User apiUser `json:"user"`
}

// UsersInfoResponse is the response from users.info when called with the
// batched "users" argument.
type UsersInfoResponse struct {
	envelope
	Users []apiUser `json:"users"`
}

// UsersListResponse is the response from users.list.
type UsersListResponse struct {
	envelope
	Members          []apiUser        `json:"members"`
	ResponseMetadata responseMetadata `json:"response_metadata"`
}

// AuthTestResponse is the response from auth.test.
type AuthTestResponse struct {
	envelope
	URL    string `json:"url"`
	Team   string `json:"team"`
	User   string `json:"user"`
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}
