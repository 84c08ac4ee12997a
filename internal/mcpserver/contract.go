package mcpserver

const contractURI = "spotmap://spot-format"

// SpotFormatContract describes the fields and limits that LLM consumers
// should follow when creating spots.
const SpotFormatContract = `# Spotmap Spot Format Contract

A spot is a titled point on the map with optional notes and photo.

## Fields

| Field     | Required | Rules                                              |
|-----------|----------|----------------------------------------------------|
| title     | yes      | 1 to 100 characters after trimming whitespace      |
| latitude  | yes      | degrees, -90 to 90                                 |
| longitude | yes      | degrees, stored exactly as given                   |
| notes     | no       | up to 1000 characters after trimming whitespace    |
| photo     | no       | data: URI or http(s) URL of a JPEG, PNG, GIF or WebP image |

## Rules

1. **Ids are assigned by the server.** Never invent one; read it from the
   create_spot result.
2. **Photos are stored inline.** The image is fetched once and embedded as a
   base64 data URL. The source may be at most 5MB.
3. **Timestamps** (createdAt, updatedAt) are milliseconds since the Unix epoch
   and are managed by the server.
4. **Duplicates are allowed.** Two spots may share a title and coordinates.
5. **Deletion is permanent.** There is no trash or undo.
`
