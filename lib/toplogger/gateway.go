package toplogger

import "fmt"

// Per-resource builder factories. Each returns a pre-seeded builder
// for the caller to customize further (includes, extra filters) and
// execute; none of them perform any request themselves.

func (c *Client) Gyms() *RequestBuilder {
	return c.NewRequest().SetURL(fmt.Sprintf("%s/gyms", c.baseURL))
}

func (c *Client) Gym(gymID int64) *RequestBuilder {
	return c.NewRequest().SetURL(fmt.Sprintf("%s/gyms/%d", c.baseURL, gymID))
}

func (c *Client) User(userID int64) *RequestBuilder {
	return c.NewRequest().SetURL(fmt.Sprintf("%s/users/%d", c.baseURL, userID))
}

func (c *Client) UserAscends(userID int64) *RequestBuilder {
	return c.NewRequest().
		SetURL(fmt.Sprintf("%s/ascends", c.baseURL)).
		Filter(map[string]any{"user": map[string]any{"uid": userID}})
}

func (c *Client) Climbs(gymID int64) *RequestBuilder {
	return c.NewRequest().SetURL(fmt.Sprintf("%s/gyms/%d/climbs", c.baseURL, gymID))
}

func (c *Client) ClimbStats(gymID, climbID int64) *RequestBuilder {
	return c.NewRequest().SetURL(fmt.Sprintf("%s/gyms/%d/climbs/%d/stats", c.baseURL, gymID, climbID))
}

func (c *Client) Groups(gymID int64) *RequestBuilder {
	return c.NewRequest().
		SetURL(fmt.Sprintf("%s/groups", c.baseURL)).
		Filter(map[string]any{"gym_id": gymID, "live": true})
}
