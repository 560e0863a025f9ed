package wire

import (
	"io"
)

// funcMessage adapts a closure to Message.
type funcMessage func(e *Encoder) error

func (f funcMessage) MarshalWire(e *Encoder) error { return f(e) }

// address and person are hand-written records used across the tests.
type address struct {
	Street string
	Zip    uint32
}

func (a *address) MarshalWire(e *Encoder) error {
	if a.Street != "" {
		if err := e.WriteStringField(1, a.Street); err != nil {
			return err
		}
	}
	if a.Zip != 0 {
		if err := e.WriteFixed32Field(2, a.Zip); err != nil {
			return err
		}
	}
	return nil
}

func (a *address) UnmarshalWire(d *Decoder) error {
	for {
		f, err := d.ReadField()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch f.Number() {
		case 1:
			a.Street, err = f.ReadString()
		case 2:
			a.Zip, err = f.ReadFixed32()
		default:
			err = f.Skip()
		}
		if err != nil {
			return err
		}
	}
}

type person struct {
	ID      int64
	Name    string
	Email   *string
	Tags    []string
	Address *address
	Friends []*person
	Score   float64
	Delta   int64
	Avatar  []byte
}

func (p *person) MarshalWire(e *Encoder) error {
	if p.ID != 0 {
		if err := e.WriteInt64Field(1, p.ID); err != nil {
			return err
		}
	}
	if p.Name != "" {
		if err := e.WriteStringField(2, p.Name); err != nil {
			return err
		}
	}
	if err := e.WriteOptionalStringField(3, p.Email); err != nil {
		return err
	}
	if err := e.WriteRepeatedStringField(4, p.Tags); err != nil {
		return err
	}
	if p.Address != nil {
		if err := e.WriteMessageField(5, p.Address); err != nil {
			return err
		}
	}
	if err := WriteRepeatedMessageField(e, 6, p.Friends); err != nil {
		return err
	}
	if p.Score != 0 {
		if err := e.WriteDoubleField(7, p.Score); err != nil {
			return err
		}
	}
	if p.Delta != 0 {
		if err := e.WriteSint64Field(8, p.Delta); err != nil {
			return err
		}
	}
	return e.WriteOptionalBytesField(9, p.Avatar)
}

func (p *person) UnmarshalWire(d *Decoder) error {
	for {
		f, err := d.ReadField()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch f.Number() {
		case 1:
			p.ID, err = f.ReadInt64()
		case 2:
			p.Name, err = f.ReadString()
		case 3:
			var s string
			if s, err = f.ReadString(); err == nil {
				p.Email = &s
			}
		case 4:
			var s string
			if s, err = f.ReadString(); err == nil {
				p.Tags = append(p.Tags, s)
			}
		case 5:
			p.Address = &address{}
			err = f.ReadMessage(p.Address)
		case 6:
			friend := &person{}
			if err = f.ReadMessage(friend); err == nil {
				p.Friends = append(p.Friends, friend)
			}
		case 7:
			p.Score, err = f.ReadFloat64()
		case 8:
			p.Delta, err = f.ReadSint64()
		case 9:
			p.Avatar, err = f.ReadBytes()
		default:
			err = f.Skip()
		}
		if err != nil {
			return err
		}
	}
}

func strPtr(s string) *string { return &s }
