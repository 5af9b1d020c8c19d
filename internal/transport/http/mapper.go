package http

import (
	"encoding/json"
	"time"

	"github.com/apaluca/PrivateChat/internal/core"
	"github.com/apaluca/PrivateChat/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundRoomCreate:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Name == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "room name is required"}, nil
		}
		return &core.Command{Kind: core.CommandCreateRoom, RoomName: data.Name}, nil, nil

	case proto.InboundRoomJoin:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Name == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "room name is required"}, nil
		}
		return &core.Command{Kind: core.CommandJoinRoom, RoomName: data.Name}, nil, nil

	case proto.InboundRoomLeave:
		return &core.Command{Kind: core.CommandLeaveRoom}, nil, nil

	case proto.InboundSend:
		var data proto.SendData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandSendGlobal, Content: data.Content}, nil, nil

	case proto.InboundRoomSend:
		var data proto.RoomSendData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.RoomName == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "room name is required"}, nil
		}
		return &core.Command{Kind: core.CommandSendRoom, RoomName: data.RoomName, Content: data.Content}, nil, nil

	case proto.InboundDirectSend:
		var data proto.DirectSendData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.RecipientID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "recipient is required"}, nil
		}
		return &core.Command{Kind: core.CommandSendDirect, RecipientID: data.RecipientID, Content: data.Content}, nil, nil

	case proto.InboundGroupSend:
		var data proto.GroupSendData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.GroupID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "group is required"}, nil
		}
		return &core.Command{Kind: core.CommandSendGroup, GroupID: data.GroupID, Content: data.Content}, nil, nil

	case proto.InboundGroupJoin:
		var data proto.GroupJoinData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.GroupID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "group is required"}, nil
		}
		return &core.Command{Kind: core.CommandJoinGroup, GroupID: data.GroupID}, nil, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "unknown event type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventGlobalMessage:
		return messageOutbound(proto.EventMessageReceived, event.Message)
	case core.EventRoomMessage:
		return messageOutbound(proto.EventRoomMessageReceived, event.Message)
	case core.EventDirectMessage:
		return messageOutbound(proto.EventDirectMessageReceived, event.Message)
	case core.EventGroupMessage:
		return messageOutbound(proto.EventGroupMessageReceived, event.Message)

	case core.EventRoomCreated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomCreated,
			Data: proto.RoomPayload{
				ID:   event.Room.ID,
				Name: event.Room.Name,
			},
		}

	case core.EventRoomUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomUserJoined,
			Data: proto.RoomUserJoinedPayload{
				RoomID:   event.RoomID,
				Username: event.User.Username,
			},
		}

	case core.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserJoined,
			Data: proto.UserPayload{
				UserID:   event.User.UserID,
				Username: event.User.Username,
			},
		}

	case core.EventUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserLeft,
			Data: proto.UserPayload{
				UserID:   event.User.UserID,
				Username: event.User.Username,
			},
		}

	case core.EventConversationUpdated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventConversationUpdated,
			Data: proto.ConversationPayload{
				ID:           event.Conversation.ID,
				Participants: event.Conversation.Participants(),
			},
		}

	case core.EventGroupUpdated:
		members := make([]proto.GroupMemberPayload, 0, len(event.Group.Members))
		for _, m := range event.Group.Members {
			members = append(members, proto.GroupMemberPayload{
				UserID:   m.UserID,
				Username: m.Username,
				IsAdmin:  m.IsAdmin,
			})
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventGroupUpdated,
			Data: proto.GroupUpdatedPayload{
				GroupID: event.Group.GroupID,
				Members: members,
			},
		}

	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Message: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Message: event.Error.Message},
		}

	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func messageOutbound(eventName string, msg core.Message) proto.Outbound {
	payload := proto.MessagePayload{
		ID:        msg.ID,
		UserID:    msg.SenderID,
		Username:  msg.SenderName,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	}
	switch msg.Channel.Kind {
	case core.ChannelRoom:
		payload.RoomID = msg.Channel.ID
	case core.ChannelDirect:
		payload.ConversationID = msg.Channel.ID
	case core.ChannelGroup:
		payload.GroupID = msg.Channel.ID
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: eventName,
		Data:  payload,
	}
}
